package employee

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go-leave/internal/balance"
	employeeerrors "go-leave/internal/employee/errors"
	"go-leave/internal/events"
	"go-leave/internal/identity"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=employee_service.go -destination=mock/employee_service_mock.go -package=mock
type Service interface {
	// Onboard runs inside the caller's transaction: employee row, default
	// balances and the employee_created outbox event commit together.
	Onboard(ctx context.Context, tx *sql.Tx, req OnboardRequest) (Employee, error)
	GetByID(ctx context.Context, p identity.Principal, id string) (EmployeeResponse, error)
}

type service struct {
	repo     Repository
	balances balance.Store
	rbac     rbac.Service
	outbox   kafka.OutboxRepository
	logger   *zap.Logger
}

func NewService(repo Repository, balances balance.Store, rbacService rbac.Service, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(repo, balances, rbacService, nil, logger...)
}

func NewServiceWithOutbox(
	repo Repository,
	balances balance.Store,
	rbacService rbac.Service,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	return &service{
		repo:     repo,
		balances: balances,
		rbac:     rbacService,
		outbox:   outboxRepo,
		logger:   l,
	}
}

func (s *service) Onboard(ctx context.Context, tx *sql.Tx, req OnboardRequest) (Employee, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("onboard employee requested",
		zap.String("request_id", rid),
		zap.String("username", req.Username),
		zap.String("department", req.Department),
	)

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Department = strings.TrimSpace(req.Department)
	if req.Username == "" || req.Email == "" || req.Department == "" {
		return Employee{}, employeeerrors.ErrMissingRequiredFields
	}

	role := identity.RoleEmployee
	if strings.TrimSpace(req.Role) != "" {
		r, err := identity.ParseRole(req.Role)
		if err != nil {
			return Employee{}, err
		}
		role = r
	}

	empl := &Employee{
		ID:         uuid.New(),
		Username:   req.Username,
		Email:      req.Email,
		Role:       role.String(),
		Department: req.Department,
	}

	if err := s.repo.WithTx(tx).Create(ctx, empl); err != nil {
		s.logger.Warn("onboard employee persist failed", zap.String("request_id", rid), zap.Error(err))
		return Employee{}, mapRepositoryError(err)
	}

	if err := s.balances.WithTx(tx).Provision(ctx, empl.ID); err != nil {
		s.logger.Error("onboard employee provision balance failed",
			zap.String("employee_id", empl.ID.String()),
			zap.Error(err),
		)
		return Employee{}, mapRepositoryError(err)
	}

	if s.outbox != nil {
		event, err := kafka.NewOutboxEvent(rid, "employee", empl.ID.String(), events.EventEmployeeCreated, events.EmployeeCreatedTopic,
			events.EmployeeCreatedEvent{
				EventType:  events.EventEmployeeCreated,
				RequestID:  rid,
				EmployeeID: empl.ID.String(),
				Role:       empl.Role,
				Department: empl.Department,
				OccurredAt: time.Now().UTC(),
			})
		if err != nil {
			s.logger.Error("marshal event failed", zap.String("request_id", rid), zap.Error(err))
			return Employee{}, err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
			s.logger.Error("onboard employee outbox persist failed",
				zap.String("employee_id", empl.ID.String()),
				zap.Error(err),
			)
			return Employee{}, mapRepositoryError(err)
		}
	}

	s.logger.Info("onboard employee staged",
		zap.String("request_id", rid),
		zap.String("employee_id", empl.ID.String()),
		zap.String("role", empl.Role),
	)
	return *empl, nil
}

func (s *service) GetByID(ctx context.Context, p identity.Principal, id string) (EmployeeResponse, error) {
	s.logger.Debug("get employee by id requested", zap.String("employee_id", id))

	employeeID, err := uuid.Parse(id)
	if err != nil {
		return EmployeeResponse{}, employeeerrors.ErrInvalidEmployeeID
	}

	action := rbac.ActionReadAny
	if p.Owns(employeeID) {
		action = rbac.ActionReadOwn
	}
	if err := s.rbac.Authorize(p, rbac.ResourceEmployee, action); err != nil {
		return EmployeeResponse{}, err
	}

	empl, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		s.logger.Warn("get employee by id failed", zap.String("employee_id", id), zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	return MapToResponse(*empl), nil
}

func MapToResponse(empl Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         empl.ID.String(),
		Username:   empl.Username,
		Email:      empl.Email,
		Role:       empl.Role,
		Department: empl.Department,
		CreatedAt:  empl.CreatedAt.UTC().Format(time.RFC3339),
	}
}
