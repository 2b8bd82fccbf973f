package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/auth/token"
	"go-leave/internal/employee"
	"go-leave/internal/identity"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (TokenResponse, error)
	Login(ctx context.Context, email, password string) (TokenResponse, error)
	Me(ctx context.Context, p identity.Principal) (employee.EmployeeResponse, error)
}

type service struct {
	db           *sql.DB
	repo         Repository
	employees    employee.Service
	employeeRepo employee.Repository
	tokens       *token.Issuer
	logger       *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Service,
	employeeRepo employee.Repository,
	tokens *token.Issuer,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{
		db:           db,
		repo:         repo,
		employees:    employees,
		employeeRepo: employeeRepo,
		tokens:       tokens,
		logger:       l,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (TokenResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	if len(req.Password) < minPasswordLength {
		return TokenResponse{}, autherrors.ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("register hash password failed", zap.Error(err))
		return TokenResponse{}, apperror.ErrInternal
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("register begin tx failed", zap.Error(err))
		return TokenResponse{}, apperror.Storage(err)
	}
	defer tx.Rollback()

	empl, err := s.employees.Onboard(ctx, tx, employee.OnboardRequest{
		Username:   req.Username,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		log.Warn("register onboard failed", zap.String("username", req.Username), zap.Error(err))
		return TokenResponse{}, err
	}

	user := &User{
		ID:         uuid.New(),
		EmployeeID: empl.ID,
		Email:      empl.Email,
		Password:   string(hashed),
	}
	if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
		log.Warn("register create user failed", zap.String("employee_id", empl.ID.String()), zap.Error(err))
		return TokenResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("register commit failed", zap.Error(err))
		return TokenResponse{}, apperror.Storage(err)
	}

	log.Info("register success",
		zap.String("user_id", user.ID.String()),
		zap.String("employee_id", empl.ID.String()),
		zap.String("role", empl.Role),
	)
	return s.issue(user, &empl)
}

func (s *service) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("login lookup failed", zap.Error(err))
			return TokenResponse{}, apperror.Storage(err)
		}
		return TokenResponse{}, autherrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Warn("login password mismatch", zap.String("user_id", user.ID.String()))
		return TokenResponse{}, autherrors.ErrInvalidCredentials
	}

	empl, err := s.employeeRepo.FindByID(ctx, user.EmployeeID)
	if err != nil {
		log.Error("login employee lookup failed",
			zap.String("user_id", user.ID.String()),
			zap.String("employee_id", user.EmployeeID.String()),
			zap.Error(err),
		)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenResponse{}, autherrors.ErrInvalidCredentials
		}
		return TokenResponse{}, apperror.Storage(err)
	}

	log.Info("login success", zap.String("user_id", user.ID.String()))
	return s.issue(user, empl)
}

func (s *service) Me(ctx context.Context, p identity.Principal) (employee.EmployeeResponse, error) {
	return s.employees.GetByID(ctx, p, p.EmployeeID.String())
}

func (s *service) issue(user *User, empl *employee.Employee) (TokenResponse, error) {
	accessToken, err := s.tokens.Issue(user.ID.String(), empl.ID.String(), empl.Role, empl.Department)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User: AuthResponse{
			UserID:     user.ID.String(),
			EmployeeID: empl.ID.String(),
			Username:   empl.Username,
			Email:      empl.Email,
			Role:       empl.Role,
			Department: empl.Department,
		},
	}, nil
}

func mapRepositoryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return autherrors.ErrEmailAlreadyRegistered
	}
	if strings.Contains(strings.ToLower(err.Error()), "users.email") {
		return autherrors.ErrEmailAlreadyRegistered
	}
	return apperror.Storage(err)
}
