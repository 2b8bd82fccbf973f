package leave

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go-leave/internal/balance"
	"go-leave/internal/events"
	"go-leave/internal/identity"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// BalanceCache drops cached balance reads after a deduction commits.
type BalanceCache interface {
	Invalidate(ctx context.Context, employeeID uuid.UUID)
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Apply(ctx context.Context, p identity.Principal, req ApplyLeaveRequest) (LeaveResponse, error)
	Decide(ctx context.Context, p identity.Principal, id string, d Decision) (LeaveResponse, error)
	ListOwn(ctx context.Context, p identity.Principal) ([]LeaveResponse, error)
	ListAll(ctx context.Context, p identity.Principal, filter ListLeavesFilter) ([]LeaveResponse, int64, error)
	GetByID(ctx context.Context, p identity.Principal, id string) (LeaveResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	balances balance.Store
	rbac     rbac.Service
	outbox   kafka.OutboxRepository
	locker   BalanceLocker
	cache    BalanceCache
	tracer   trace.Tracer
	logger   *zap.Logger
}

func NewService(db *sql.DB, repo Repository, balances balance.Store, rbacService rbac.Service, logger ...*zap.Logger) Service {
	return NewServiceWithInfra(db, repo, balances, rbacService, nil, nil, nil, logger...)
}

// NewServiceWithInfra wires the optional collaborators. Any of outboxRepo,
// locker and cache may be nil.
func NewServiceWithInfra(
	db *sql.DB,
	repo Repository,
	balances balance.Store,
	rbacService rbac.Service,
	outboxRepo kafka.OutboxRepository,
	locker BalanceLocker,
	cache BalanceCache,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		balances: balances,
		rbac:     rbacService,
		outbox:   outboxRepo,
		locker:   locker,
		cache:    cache,
		tracer:   otel.Tracer("go-leave/leave"),
		logger:   l,
	}
}

func (s *service) Apply(ctx context.Context, p identity.Principal, req ApplyLeaveRequest) (LeaveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "leave.service.Apply",
		trace.WithAttributes(attribute.String("employee.id", p.EmployeeID.String())))
	defer span.End()

	log := contextutil.GetLogger(ctx, s.logger)
	rid := contextutil.GetRequestID(ctx)
	log.Debug("apply leave requested",
		zap.String("employee_id", p.EmployeeID.String()),
		zap.String("category", req.Category),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	if err := s.rbac.Authorize(p, rbac.ResourceLeave, rbac.ActionApply); err != nil {
		return LeaveResponse{}, fail(span, err)
	}

	category, startDate, endDate, err := validateApplyRequest(req)
	if err != nil {
		log.Warn("apply leave validation failed", zap.Error(err))
		return LeaveResponse{}, fail(span, err)
	}
	days := countDays(startDate, endDate)
	span.SetAttributes(attribute.Int("leave.days", days), attribute.String("leave.category", category.String()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("apply leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, fail(span, apperror.Storage(err))
	}
	defer tx.Rollback()

	// Advisory only: the authoritative check happens when the request is approved.
	current, err := s.balances.WithTx(tx).GetBalance(ctx, p.EmployeeID)
	if err != nil {
		log.Warn("apply leave balance lookup failed", zap.Error(err))
		return LeaveResponse{}, fail(span, err)
	}
	if available := current[category]; available < days {
		log.Warn("apply leave insufficient balance",
			zap.String("category", category.String()),
			zap.Int("available", available),
			zap.Int("requested", days),
		)
		return LeaveResponse{}, fail(span, balance.InsufficientBalance(category, available, days))
	}

	l := &Leave{
		ID:         uuid.New(),
		EmployeeID: p.EmployeeID,
		Category:   category,
		StartDate:  startDate,
		EndDate:    endDate,
		Days:       days,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     StatusPending,
	}

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, l); err != nil {
		log.Error("apply leave persist failed", zap.Error(err))
		return LeaveResponse{}, fail(span, mapRepositoryError(err))
	}

	if err := s.stageEvent(ctx, tx, rid, events.EventLeaveRequested, l); err != nil {
		log.Error("apply leave outbox persist failed", zap.String("leave_id", l.ID.String()), zap.Error(err))
		return LeaveResponse{}, fail(span, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("apply leave commit failed", zap.Error(err))
		return LeaveResponse{}, fail(span, apperror.Storage(err))
	}

	log.Info("apply leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", l.EmployeeID.String()),
		zap.Int("days", l.Days),
	)
	return mapToResponse(*l), nil
}

func (s *service) Decide(ctx context.Context, p identity.Principal, id string, d Decision) (LeaveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "leave.service.Decide",
		trace.WithAttributes(attribute.String("leave.id", id)))
	defer span.End()

	log := contextutil.GetLogger(ctx, s.logger)
	rid := contextutil.GetRequestID(ctx)

	// Role first: a non-manager is refused whatever the request state is.
	if err := s.rbac.Authorize(p, rbac.ResourceLeave, rbac.ActionDecide); err != nil {
		log.Warn("decide leave forbidden",
			zap.String("leave_id", id),
			zap.String("actor_id", p.EmployeeID.String()),
			zap.String("role", p.Role.String()),
		)
		return LeaveResponse{}, fail(span, err)
	}
	if d == nil {
		return LeaveResponse{}, fail(span, leaveerrors.ErrInvalidDecision)
	}
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return LeaveResponse{}, fail(span, leaveerrors.ErrInvalidLeaveID)
	}
	span.SetAttributes(attribute.String("leave.outcome", d.Outcome().String()))

	existing, err := s.repo.FindByID(ctx, leaveID)
	if err != nil {
		return LeaveResponse{}, fail(span, mapRepositoryError(err))
	}
	if existing.Status != StatusPending {
		return LeaveResponse{}, fail(span, leaveerrors.ErrAlreadyProcessed)
	}

	if d.Outcome() == StatusApproved && s.locker != nil {
		release, err := s.locker.Lock(ctx, existing.EmployeeID)
		if err != nil {
			log.Warn("could not obtain balance lock; proceeding without lock",
				zap.String("employee_id", existing.EmployeeID.String()),
				zap.Error(err),
			)
		}
		if release != nil {
			defer release()
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, fail(span, apperror.Storage(err))
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	l, err := qtx.FindByIDForUpdate(ctx, leaveID)
	if err != nil {
		return LeaveResponse{}, fail(span, mapRepositoryError(err))
	}
	if l.Status != StatusPending {
		log.Warn("decide leave already processed",
			zap.String("leave_id", id),
			zap.String("status", l.Status.String()),
		)
		return LeaveResponse{}, fail(span, leaveerrors.ErrAlreadyProcessed)
	}

	if d.Outcome() == StatusApproved {
		if err := s.balances.WithTx(tx).Deduct(ctx, l.EmployeeID, l.Category, l.Days); err != nil {
			log.Warn("decide leave deduct failed",
				zap.String("leave_id", id),
				zap.String("employee_id", l.EmployeeID.String()),
				zap.Error(err),
			)
			return LeaveResponse{}, fail(span, err)
		}
	}

	now := time.Now().UTC()
	approverID := p.EmployeeID
	note := d.Note()
	l.Status = d.Outcome()
	l.ApproverID = &approverID
	l.Comment = &note
	l.DecidedAt = &now

	updated, err := qtx.UpdateDecision(ctx, l)
	if err != nil {
		log.Error("decide leave update failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, fail(span, mapRepositoryError(err))
	}
	if !updated {
		return LeaveResponse{}, fail(span, leaveerrors.ErrAlreadyProcessed)
	}

	eventType := events.EventLeaveRejected
	if l.Status == StatusApproved {
		eventType = events.EventLeaveApproved
	}
	if err := s.stageEvent(ctx, tx, rid, eventType, l); err != nil {
		log.Error("decide leave outbox persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, fail(span, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("decide leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, fail(span, apperror.Storage(err))
	}

	if l.Status == StatusApproved && s.cache != nil {
		s.cache.Invalidate(ctx, l.EmployeeID)
	}

	log.Info("decide leave success",
		zap.String("leave_id", id),
		zap.String("status", l.Status.String()),
		zap.String("approver_id", approverID.String()),
	)
	l.Employee = existing.Employee
	return mapToResponse(*l), nil
}

func (s *service) ListOwn(ctx context.Context, p identity.Principal) ([]LeaveResponse, error) {
	if err := s.rbac.Authorize(p, rbac.ResourceLeave, rbac.ActionReadOwn); err != nil {
		return nil, err
	}

	leaves, err := s.repo.FindByEmployee(ctx, p.EmployeeID)
	if err != nil {
		s.logger.Error("list own leaves failed", zap.String("employee_id", p.EmployeeID.String()), zap.Error(err))
		return nil, apperror.Storage(err)
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ListAll(ctx context.Context, p identity.Principal, filter ListLeavesFilter) ([]LeaveResponse, int64, error) {
	if err := s.rbac.Authorize(p, rbac.ResourceLeave, rbac.ActionReadAll); err != nil {
		return nil, 0, err
	}

	q := ListQuery{
		Department: strings.TrimSpace(filter.Department),
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}
	if v := strings.TrimSpace(filter.Status); v != "" {
		status, ok := ParseStatus(strings.ToLower(v))
		if !ok {
			return nil, 0, leaveerrors.ErrInvalidStatusFilter
		}
		q.Status = status.String()
	}

	leaves, total, err := s.repo.FindAll(ctx, q)
	if err != nil {
		s.logger.Error("list leaves failed", zap.Error(err))
		return nil, 0, apperror.Storage(err)
	}
	return mapToListResponse(leaves), total, nil
}

func (s *service) GetByID(ctx context.Context, p identity.Principal, id string) (LeaveResponse, error) {
	leaveID, err := uuid.Parse(id)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	l, err := s.repo.FindByID(ctx, leaveID)
	if err != nil {
		return LeaveResponse{}, mapRepositoryError(err)
	}

	action := rbac.ActionReadAll
	if p.Owns(l.EmployeeID) {
		action = rbac.ActionReadOwn
	}
	if err := s.rbac.Authorize(p, rbac.ResourceLeave, action); err != nil {
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) stageEvent(ctx context.Context, tx *sql.Tx, requestID, eventType string, l *Leave) error {
	if s.outbox == nil {
		return nil
	}

	payload := events.LeaveEvent{
		EventType:  eventType,
		RequestID:  requestID,
		LeaveID:    l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		Category:   l.Category.String(),
		StartDate:  l.StartDate.Format(dateLayout),
		EndDate:    l.EndDate.Format(dateLayout),
		Days:       l.Days,
		Status:     l.Status.String(),
		OccurredAt: time.Now().UTC(),
	}
	if l.ApproverID != nil {
		payload.ApproverID = l.ApproverID.String()
	}
	if l.Comment != nil {
		payload.Comment = *l.Comment
	}

	event, err := kafka.NewOutboxEvent(requestID, "leave", l.ID.String(), eventType, events.LeaveLifecycleTopic, payload)
	if err != nil {
		return err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func validateApplyRequest(req ApplyLeaveRequest) (balance.Category, time.Time, time.Time, error) {
	category, err := balance.ParseCategory(strings.ToLower(strings.TrimSpace(req.Category)))
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}

	startDate, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return "", time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	endDate, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		return "", time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return "", time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateRange
	}

	if strings.TrimSpace(req.Reason) == "" {
		return "", time.Time{}, time.Time{}, leaveerrors.ErrReasonRequired
	}
	return category, startDate, endDate, nil
}

const secondsPerDay = 24 * 60 * 60

// countDays is inclusive of both ends: a single-day request counts as 1.
// Both dates are UTC midnights, so Unix()/secondsPerDay is an exact day
// number. time.Duration saturates near 292 years and cannot be used here.
func countDays(start, end time.Time) int {
	return int(end.Unix()/secondsPerDay-start.Unix()/secondsPerDay) + 1
}

func mapRepositoryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return leaveerrors.ErrLeaveNotFound
	}
	return apperror.Storage(err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func mapToResponse(l Leave) LeaveResponse {
	resp := LeaveResponse{
		ID:         l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		Category:   l.Category.String(),
		StartDate:  l.StartDate.Format(dateLayout),
		EndDate:    l.EndDate.Format(dateLayout),
		Days:       l.Days,
		Reason:     l.Reason,
		Status:     l.Status.String(),
		Comment:    l.Comment,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.Employee != nil {
		resp.Employee = &LeaveEmployeeResponse{
			Username:   l.Employee.Username,
			Email:      l.Employee.Email,
			Department: l.Employee.Department,
		}
	}
	if l.ApproverID != nil {
		v := l.ApproverID.String()
		resp.ApproverID = &v
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(leaves []Leave) []LeaveResponse {
	resp := make([]LeaveResponse, 0, len(leaves))
	for _, l := range leaves {
		resp = append(resp, mapToResponse(l))
	}
	return resp
}
