package events

import "time"

const (
	LeaveLifecycleTopic = "hr.leave.lifecycle.v1"

	EventLeaveRequested = "leave_requested"
	EventLeaveApproved  = "leave_approved"
	EventLeaveRejected  = "leave_rejected"
)

// LeaveEvent is published for every ledger transition. Days and Category let
// downstream consumers (payroll, calendars) react without reading the ledger.
type LeaveEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	LeaveID    string    `json:"leave_id"`
	EmployeeID string    `json:"employee_id"`
	Category   string    `json:"category"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Days       int       `json:"days"`
	Status     string    `json:"status"`
	ApproverID string    `json:"approver_id,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
