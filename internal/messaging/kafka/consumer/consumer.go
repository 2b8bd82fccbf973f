package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"go-leave/internal/balance"
	"go-leave/internal/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafkago.Reader the consumers use.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

const maxRetryDelay = 30 * time.Second

// ConsumeEmployeeLifecycle provisions default leave balances for every
// employee_created event. Messages are committed only after the rows exist or
// the event is known to be unprocessable. A message that fails transiently is
// retried with backoff before the next one is fetched: committing a later
// offset would otherwise skip it for good.
func ConsumeEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	balances balance.Store,
	logger *zap.Logger,
	retryDelay time.Duration,
) {
	if logger == nil {
		logger = zap.L()
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	log := logger.Named("kafka.consumer.employee_lifecycle")
	log.Info("employee lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			if errors.Is(err, io.EOF) {
				log.Warn("employee lifecycle reader closed")
				return
			}
			log.Error("fetch employee lifecycle message failed", zap.Error(err))
			if !sleep(ctx, retryDelay) {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			continue
		}

		delay := retryDelay
		for attempt := 1; !HandleEmployeeCreated(ctx, balances, msg, log); attempt++ {
			log.Warn("employee lifecycle message will be retried",
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if !sleep(ctx, delay) {
				log.Info("employee lifecycle consumer stopped before commit", zap.Int64("offset", msg.Offset))
				return
			}
			delay = min(delay*2, maxRetryDelay)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit employee lifecycle message failed", zap.Error(err))
		}
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// HandleEmployeeCreated reports whether msg is done with and may be committed.
// A false result means the same message has to be handled again.
func HandleEmployeeCreated(ctx context.Context, balances balance.Store, msg kafkago.Message, log *zap.Logger) bool {
	var event events.EmployeeCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode employee_created event failed", zap.Error(err))
		return true
	}

	if event.EventType != "" && event.EventType != events.EventEmployeeCreated {
		log.Debug("ignore employee lifecycle event", zap.String("event_type", event.EventType))
		return true
	}

	employeeID, err := uuid.Parse(event.EmployeeID)
	if err != nil {
		log.Error("employee_created event has invalid employee id",
			zap.String("employee_id", event.EmployeeID),
			zap.String("request_id", event.RequestID),
		)
		return true
	}

	if err := balances.Provision(ctx, employeeID); err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("employee not known locally, skipping balance provisioning",
				zap.String("employee_id", event.EmployeeID),
				zap.String("request_id", event.RequestID),
			)
			return true
		}

		log.Error("provision leave balance failed",
			zap.String("employee_id", event.EmployeeID),
			zap.String("request_id", event.RequestID),
			zap.Error(err),
		)
		return false
	}

	log.Info("leave balance provisioned from employee_created event",
		zap.String("employee_id", event.EmployeeID),
		zap.String("request_id", event.RequestID),
	)
	return true
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "violates foreign key constraint") ||
		strings.Contains(errMsg, "foreign key constraint failed")
}
