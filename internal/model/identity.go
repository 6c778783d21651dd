package model

// Identity is the signed-in employee as returned by the login endpoint.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"name"`
	EmployeeID  string `json:"employee_id"`
}
