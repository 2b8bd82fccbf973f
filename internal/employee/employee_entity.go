package employee

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username   string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_employee_username"`
	Email      string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_employee_email"`
	Role       string    `gorm:"type:varchar(20);not null;default:'employee'"`
	Department string    `gorm:"type:varchar(100);not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
