package leave

import (
	"time"

	"go-leave/internal/balance"
	"go-leave/internal/employee"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) String() string { return string(s) }

func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(v), true
	}
	return "", false
}

// Leave is one entry of the ledger. ApproverID, Comment and DecidedAt are set
// exactly when Status is no longer pending.
type Leave struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID        `gorm:"type:uuid;not null;index:idx_leaves_employee_created,priority:1"`
	Category   balance.Category `gorm:"type:varchar(20);not null"`
	StartDate  time.Time        `gorm:"type:date;not null"`
	EndDate    time.Time        `gorm:"type:date;not null"`
	Days       int              `gorm:"not null;check:chk_leaves_days,days >= 1"`
	Reason     string           `gorm:"type:text;not null"`
	Status     Status           `gorm:"type:varchar(20);not null;default:'pending';index:idx_leaves_status"`
	ApproverID *uuid.UUID       `gorm:"type:uuid"`
	Comment    *string          `gorm:"type:text"`
	DecidedAt  *time.Time
	CreatedAt  time.Time `gorm:"index:idx_leaves_employee_created,priority:2"`
	UpdatedAt  time.Time

	Employee *employee.Employee `gorm:"foreignKey:EmployeeID"`
}

func (Leave) TableName() string {
	return "leaves"
}
