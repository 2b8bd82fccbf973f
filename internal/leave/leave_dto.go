package leave

type ApplyLeaveRequest struct {
	Category  string `json:"category" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"required,max=1000"`
}

type DecideLeaveRequest struct {
	Status  string `json:"status" binding:"required,oneof=approved rejected"`
	Comment string `json:"comment" binding:"max=1000"`
}

type ListLeavesFilter struct {
	Status     string `form:"status"`
	Department string `form:"department"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type LeaveEmployeeResponse struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type LeaveResponse struct {
	ID         string                 `json:"id"`
	EmployeeID string                 `json:"employee_id"`
	Employee   *LeaveEmployeeResponse `json:"employee,omitempty"`
	Category   string                 `json:"category"`
	StartDate  string                 `json:"start_date"`
	EndDate    string                 `json:"end_date"`
	Days       int                    `json:"days"`
	Reason     string                 `json:"reason"`
	Status     string                 `json:"status"`
	ApproverID *string                `json:"approver_id,omitempty"`
	Comment    *string                `json:"comment,omitempty"`
	DecidedAt  *string                `json:"decided_at,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}
