package auth

import (
	"time"

	"github.com/google/uuid"
)

// User holds login credentials for exactly one employee.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_user_employee"`
	Email      string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_user_email"`
	Password   string    `gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (User) TableName() string {
	return "users"
}
