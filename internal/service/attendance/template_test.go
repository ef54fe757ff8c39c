package attendance

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateColumnHeader(t *testing.T) {
	assert.Equal(t, "Mon (06/03)", DateColumnHeader(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Sun (12/31)", DateColumnHeader(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestBuildTemplate(t *testing.T) {
	rng, err := daterange.Parse("2024-06-03", "2024-06-05")
	require.NoError(t, err)

	roster := []employee.RosterEntry{
		{EmployeeID: 7, Name: "Ana", Department: "Ops"},
		{EmployeeID: 9, Name: "Budi", Department: "Finance"},
	}

	doc := BuildTemplate(roster, rng)

	assert.Equal(t, tabular.Row{"EmployeeId", "Name", "Department", "Mon (06/03)", "Tue (06/04)", "Wed (06/05)", "Remarks"}, doc.Header)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, tabular.Row{"7", "Ana", "Ops", "", "", "", ""}, doc.Rows[0])
	assert.Equal(t, "9", doc.Rows[1].Cell(0))
	for _, row := range doc.Rows {
		assert.Len(t, row, len(doc.Header))
	}
}

func TestBuildTemplate_EmptyRoster(t *testing.T) {
	rng, err := daterange.Parse("2024-06-03", "2024-06-03")
	require.NoError(t, err)

	doc := BuildTemplate(nil, rng)
	assert.Len(t, doc.Header, 5)
	assert.Empty(t, doc.Rows)
}
