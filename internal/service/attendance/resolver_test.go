package attendance

import (
	"testing"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns(t *testing.T) {
	header := tabular.Row{"EmployeeId", "Name", "Department", "Mon (06/03)", "Tuesday", "Wed (06/05)", "Remarks"}

	index := ResolveColumns(header, 2024)

	assert.Equal(t, ColumnIndex{"2024-06-03": 3, "2024-06-05": 5}, index)
}

func TestResolveColumns_ReservedColumnsIgnored(t *testing.T) {
	header := tabular.Row{"(06/01)", "(06/02)", "(06/03)", "Thu (06/06)", "Remarks (06/07)"}

	index := ResolveColumns(header, 2024)

	assert.Equal(t, ColumnIndex{"2024-06-06": 3}, index)
}

func TestResolveColumns_ImpossibleDate(t *testing.T) {
	header := tabular.Row{"EmployeeId", "Name", "Department", "Fri (02/30)", "Sat (13/01)", "Remarks"}

	assert.Empty(t, ResolveColumns(header, 2024))
}

func TestResolveColumns_ShortHeader(t *testing.T) {
	assert.Empty(t, ResolveColumns(tabular.Row{"EmployeeId"}, 2024))
	assert.Empty(t, ResolveColumns(nil, 2024))
}

func TestResolveColumnsForRange_AcrossYears(t *testing.T) {
	rng, err := daterange.Parse("2024-12-30", "2025-01-02")
	require.NoError(t, err)

	header := tabular.Row{"EmployeeId", "Name", "Department"}
	for _, day := range rng.Days() {
		header = append(header, DateColumnHeader(day))
	}
	header = append(header, "Remarks")

	index := ResolveColumnsForRange(header, rng)

	for i, day := range rng.Days() {
		col, ok := index[daterange.Format(day)]
		require.True(t, ok, "date %s not resolved", daterange.Format(day))
		assert.Equal(t, 3+i, col)
	}
}
