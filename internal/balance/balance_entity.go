package balance

import (
	"time"

	"github.com/google/uuid"
)

// LeaveBalance is one row per (employee, category).
type LeaveBalance struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Category   string    `gorm:"type:varchar(20);primaryKey"`
	Days       int       `gorm:"type:int;not null;default:0;check:chk_leave_balances_days_non_negative,days >= 0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}
