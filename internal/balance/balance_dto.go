package balance

type BalanceResponse struct {
	EmployeeID string         `json:"employee_id"`
	Balances   map[string]int `json:"balances"`
}

func mapToResponse(employeeID string, b Balance) BalanceResponse {
	resp := BalanceResponse{EmployeeID: employeeID, Balances: make(map[string]int, len(b))}
	for c, days := range b {
		resp.Balances[c.String()] = days
	}
	return resp
}
