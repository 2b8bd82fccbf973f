package identity

import (
	"net/http"
	"strings"

	"go-leave/internal/shared/apperror"

	"github.com/google/uuid"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

var ErrInvalidRole = apperror.New(
	apperror.CodeInvalidInput,
	"role must be one of employee, manager",
	http.StatusBadRequest,
)

func ParseRole(v string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case RoleEmployee:
		return RoleEmployee, nil
	case RoleManager:
		return RoleManager, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }

// Principal is the verified caller identity handed to the ledger by the
// authentication layer.
type Principal struct {
	EmployeeID uuid.UUID
	Role       Role
	Department string
}

func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}

func (p Principal) Owns(employeeID uuid.UUID) bool {
	return p.EmployeeID != uuid.Nil && p.EmployeeID == employeeID
}

// NewPrincipal validates raw claim values.
func NewPrincipal(employeeID, role, department string) (Principal, error) {
	id, err := uuid.Parse(employeeID)
	if err != nil {
		return Principal{}, apperror.ErrUnauthorized
	}
	r, err := ParseRole(role)
	if err != nil {
		return Principal{}, apperror.ErrUnauthorized
	}
	return Principal{EmployeeID: id, Role: r, Department: department}, nil
}
