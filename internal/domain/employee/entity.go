package employee

// RosterEntry is the read-only identity used to seed template rows.
type RosterEntry struct {
	EmployeeID int    `json:"employee_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)
