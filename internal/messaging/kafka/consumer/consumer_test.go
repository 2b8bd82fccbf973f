package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	balanceMock "go-leave/internal/balance/mock"
	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka/consumer"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func employeeCreatedMessage(t *testing.T, employeeID string) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(events.EmployeeCreatedEvent{
		EventType:  events.EventEmployeeCreated,
		RequestID:  "req-1",
		EmployeeID: employeeID,
	})
	require.NoError(t, err)
	return kafkago.Message{Topic: events.EmployeeCreatedTopic, Key: []byte(employeeID), Value: payload}
}

func TestHandleEmployeeCreated(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("success provisions balance", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		employeeID := uuid.New()
		store.EXPECT().Provision(ctx, employeeID).Return(nil)

		assert.True(t, consumer.HandleEmployeeCreated(ctx, store, employeeCreatedMessage(t, employeeID.String()), log))
	})

	t.Run("negative unknown employee is skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		employeeID := uuid.New()
		store.EXPECT().Provision(ctx, employeeID).Return(&pgconn.PgError{Code: "23503"})

		assert.True(t, consumer.HandleEmployeeCreated(ctx, store, employeeCreatedMessage(t, employeeID.String()), log))
	})

	t.Run("negative storage error keeps offset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		employeeID := uuid.New()
		store.EXPECT().Provision(ctx, employeeID).Return(errors.New("connection refused"))

		assert.False(t, consumer.HandleEmployeeCreated(ctx, store, employeeCreatedMessage(t, employeeID.String()), log))
	})

	t.Run("negative malformed payload is dropped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)

		assert.True(t, consumer.HandleEmployeeCreated(ctx, store, kafkago.Message{Value: []byte("{")}, log))
	})

	t.Run("negative invalid employee id is dropped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)

		assert.True(t, consumer.HandleEmployeeCreated(ctx, store, employeeCreatedMessage(t, "not-a-uuid"), log))
	})
}

type scriptedReader struct {
	messages  []kafkago.Message
	fetchErrs []error
	committed []kafkago.Message
	cancel    context.CancelFunc
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafkago.Message{}, err
	}
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func committedKeys(r *scriptedReader) []string {
	keys := make([]string, 0, len(r.committed))
	for _, m := range r.committed {
		keys = append(keys, string(m.Key))
	}
	return keys
}

func TestConsumeEmployeeLifecycle(t *testing.T) {
	t.Run("failed message is retried before the next one is committed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		first := uuid.New()
		second := uuid.New()
		gomock.InOrder(
			store.EXPECT().Provision(gomock.Any(), first).Return(errors.New("timeout")),
			store.EXPECT().Provision(gomock.Any(), first).Return(nil),
			store.EXPECT().Provision(gomock.Any(), second).Return(nil),
		)

		reader := &scriptedReader{
			messages: []kafkago.Message{
				employeeCreatedMessage(t, first.String()),
				employeeCreatedMessage(t, second.String()),
			},
			cancel: cancel,
		}

		consumer.ConsumeEmployeeLifecycle(ctx, reader, store, zap.NewNop(), time.Millisecond)

		assert.Equal(t, []string{first.String(), second.String()}, committedKeys(reader))
	})

	t.Run("negative shutdown during retry leaves message uncommitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		employeeID := uuid.New()
		store.EXPECT().Provision(gomock.Any(), employeeID).DoAndReturn(func(context.Context, uuid.UUID) error {
			cancel()
			return errors.New("connection refused")
		})

		reader := &scriptedReader{
			messages: []kafkago.Message{employeeCreatedMessage(t, employeeID.String())},
			cancel:   cancel,
		}

		consumer.ConsumeEmployeeLifecycle(ctx, reader, store, zap.NewNop(), time.Hour)

		assert.Empty(t, reader.committed)
	})

	t.Run("fetch error backs off and continues", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		employeeID := uuid.New()
		store.EXPECT().Provision(gomock.Any(), employeeID).Return(nil)

		reader := &scriptedReader{
			fetchErrs: []error{errors.New("leader not available")},
			messages:  []kafkago.Message{employeeCreatedMessage(t, employeeID.String())},
			cancel:    cancel,
		}

		consumer.ConsumeEmployeeLifecycle(ctx, reader, store, zap.NewNop(), time.Millisecond)

		assert.Equal(t, []string{employeeID.String()}, committedKeys(reader))
	})

	t.Run("closed reader stops the loop", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := balanceMock.NewMockStore(ctrl)

		reader := &scriptedReader{fetchErrs: []error{io.EOF}, cancel: func() {}}

		done := make(chan struct{})
		go func() {
			consumer.ConsumeEmployeeLifecycle(context.Background(), reader, store, zap.NewNop(), time.Hour)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("consumer kept polling a closed reader")
		}
		assert.Empty(t, reader.committed)
	})
}
