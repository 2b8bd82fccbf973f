package rbac

import "go-leave/internal/identity"

const (
	ResourceLeave    = "leave"
	ResourceBalance  = "balance"
	ResourceEmployee = "employee"

	ActionApply   = "apply"
	ActionReadOwn = "read_own"
	ActionReadAll = "read_all"
	ActionReadAny = "read_any"
	ActionDecide  = "decide"
)

type Permission struct {
	Resource string
	Action   string
}

// DefaultPolicies is the fixed permission set per role. Managers additionally
// inherit every employee permission through the grouping policy.
func DefaultPolicies() map[identity.Role][]Permission {
	return map[identity.Role][]Permission{
		identity.RoleEmployee: {
			{Resource: ResourceLeave, Action: ActionApply},
			{Resource: ResourceLeave, Action: ActionReadOwn},
			{Resource: ResourceBalance, Action: ActionReadOwn},
			{Resource: ResourceEmployee, Action: ActionReadOwn},
		},
		identity.RoleManager: {
			{Resource: ResourceLeave, Action: ActionDecide},
			{Resource: ResourceLeave, Action: ActionReadAll},
			{Resource: ResourceBalance, Action: ActionReadAny},
			{Resource: ResourceEmployee, Action: ActionReadAny},
		},
	}
}
