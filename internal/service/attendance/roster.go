package attendance

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
)

// FileRoster is a roster read from a spreadsheet whose first three columns are
// EmployeeId, Name and Department. Extra columns are ignored.
type FileRoster struct {
	entries []employee.RosterEntry
}

// ParseRoster reads a roster document. Blank ids are skipped; a non-numeric or
// repeated id is an error naming its data row.
func ParseRoster(doc tabular.Document) (*FileRoster, error) {
	if !strings.EqualFold(strings.TrimSpace(doc.Header.Cell(0)), ColumnEmployeeID) {
		return nil, fmt.Errorf("%w: first column must be %s", tabular.ErrMalformedDocument, ColumnEmployeeID)
	}

	seen := make(map[int]bool, len(doc.Rows))
	entries := make([]employee.RosterEntry, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		cell := strings.TrimSpace(row.Cell(0))
		if cell == "" {
			continue
		}
		id, ok := validator.ParseEmployeeID(cell)
		if !ok {
			return nil, fmt.Errorf("%w: data row %d: employee id %q is not a positive number", tabular.ErrMalformedDocument, i+1, cell)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: data row %d: employee id %d appears twice", tabular.ErrMalformedDocument, i+1, id)
		}
		seen[id] = true
		entries = append(entries, employee.RosterEntry{
			EmployeeID: id,
			Name:       strings.TrimSpace(row.Cell(1)),
			Department: strings.TrimSpace(row.Cell(2)),
		})
	}
	return &FileRoster{entries: entries}, nil
}

// ListRoster implements employee.RosterRepository. Department matching ignores case.
func (r *FileRoster) ListRoster(_ context.Context, filter employee.RosterFilter) ([]employee.RosterEntry, error) {
	if filter.Department == nil {
		return append([]employee.RosterEntry(nil), r.entries...), nil
	}
	var out []employee.RosterEntry
	for _, e := range r.entries {
		if strings.EqualFold(e.Department, *filter.Department) {
			out = append(out, e)
		}
	}
	return out, nil
}
