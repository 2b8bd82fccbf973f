package leave

import (
	"context"
	"database/sql"
	"time"

	"go-leave/internal/shared/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListQuery struct {
	Status     string
	Department string
	Page       int
	PageSize   int
}

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *Leave) error
	FindByID(ctx context.Context, id uuid.UUID) (*Leave, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Leave, error)
	// UpdateDecision persists a decision only while the row is still pending.
	// It reports whether the row was changed.
	UpdateDecision(ctx context.Context, l *Leave) (bool, error)
	FindByEmployee(ctx context.Context, employeeID uuid.UUID) ([]Leave, error)
	FindAll(ctx context.Context, q ListQuery) ([]Leave, int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.conn(ctx).Omit("Employee").Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Leave, error) {
	var l Leave
	err := r.conn(ctx).
		Preload("Employee").
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Leave, error) {
	var l Leave
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) UpdateDecision(ctx context.Context, l *Leave) (bool, error) {
	values := map[string]any{
		"status":     l.Status,
		"updated_at": time.Now().UTC(),
	}
	if l.ApproverID != nil {
		values["approver_id"] = *l.ApproverID
	}
	if l.Comment != nil {
		values["comment"] = *l.Comment
	}
	if l.DecidedAt != nil {
		values["decided_at"] = *l.DecidedAt
	}

	res := r.conn(ctx).
		Model(&Leave{}).
		Where("id = ? AND status = ?", l.ID, StatusPending).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID uuid.UUID) ([]Leave, error) {
	var leaves []Leave
	err := r.conn(ctx).
		Preload("Employee").
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindAll(ctx context.Context, q ListQuery) ([]Leave, int64, error) {
	db := r.conn(ctx).
		Model(&Leave{}).
		Scopes(scope.Column("status", q.Status))
	if q.Department != "" {
		db = db.Where("employee_id IN (?)",
			r.conn(ctx).Table("employees").Select("id").Where("department = ?", q.Department))
	}

	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leaves []Leave
	err := db.
		Preload("Employee").
		Scopes(scope.Paginate(q.Page, q.PageSize)).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, total, err
}
