package balance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByEmployee(ctx context.Context, employeeID uuid.UUID) ([]LeaveBalance, error)
	ConditionalDecrement(ctx context.Context, employeeID uuid.UUID, category Category, amount int) (bool, error)
	CreateIfAbsent(ctx context.Context, rows []LeaveBalance) error
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

// conn routes statements through the bound *sql.Tx when present.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) FindByEmployee(ctx context.Context, employeeID uuid.UUID) ([]LeaveBalance, error) {
	var rows []LeaveBalance
	err := r.conn(ctx).
		Where("employee_id = ?", employeeID).
		Order("category ASC").
		Find(&rows).Error
	return rows, err
}

// ConditionalDecrement subtracts amount only while the stored balance covers it.
// The check and the write are a single statement, so concurrent callers cannot
// both pass the check. It reports whether a row was changed.
func (r *repository) ConditionalDecrement(ctx context.Context, employeeID uuid.UUID, category Category, amount int) (bool, error) {
	res := r.conn(ctx).
		Model(&LeaveBalance{}).
		Where("employee_id = ? AND category = ? AND days >= ?", employeeID, category.String(), amount).
		Updates(map[string]any{
			"days":       gorm.Expr("days - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateIfAbsent(ctx context.Context, rows []LeaveBalance) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "category"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}
