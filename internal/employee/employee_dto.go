package employee

type OnboardRequest struct {
	Username   string
	Email      string
	Role       string
	Department string
}

type EmployeeResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	CreatedAt  string `json:"created_at"`
}
