package attendance

import (
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
)

// Fixed template columns. Date columns sit between the identity columns and remarks.
const (
	ColumnEmployeeID = "EmployeeId"
	ColumnName       = "Name"
	ColumnDepartment = "Department"
	ColumnRemarks    = "Remarks"

	identityColumns = 3

	// dateColumnLayout renders e.g. "Mon (06/03)". The resolver parses the same shape.
	dateColumnLayout = "Mon (01/02)"
)

// DateColumnHeader renders the header cell for one day.
func DateColumnHeader(day time.Time) string {
	return day.Format(dateColumnLayout)
}

// BuildTemplate lays out one row per roster entry with every date cell blank.
func BuildTemplate(roster []employee.RosterEntry, rng daterange.Range) tabular.Document {
	days := rng.Days()

	header := make(tabular.Row, 0, identityColumns+len(days)+1)
	header = append(header, ColumnEmployeeID, ColumnName, ColumnDepartment)
	for _, day := range days {
		header = append(header, DateColumnHeader(day))
	}
	header = append(header, ColumnRemarks)

	rows := make([]tabular.Row, 0, len(roster))
	for _, entry := range roster {
		row := make(tabular.Row, len(header))
		row[0] = strconv.Itoa(entry.EmployeeID)
		row[1] = entry.Name
		row[2] = entry.Department
		rows = append(rows, row)
	}

	return tabular.Document{Header: header, Rows: rows}
}
