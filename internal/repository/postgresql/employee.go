package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.RosterRepository {
	return &employeeRepository{db: db}
}

// ListRoster implements employee.RosterRepository. Only active employees are listed.
func (r *employeeRepository) ListRoster(ctx context.Context, filter employee.RosterFilter) ([]employee.RosterEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, full_name, department
		FROM employees
		WHERE employment_status = $1
		  AND ($2::text IS NULL OR department = $2)
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, string(employee.EmploymentStatusActive), filter.Department)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	defer rows.Close()

	roster := []employee.RosterEntry{}
	for rows.Next() {
		var entry employee.RosterEntry
		if err := rows.Scan(&entry.EmployeeID, &entry.Name, &entry.Department); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster: %w", err)
	}

	return roster, nil
}
