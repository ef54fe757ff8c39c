package attendance

import (
	"fmt"
	"regexp"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
)

var dateColumnPattern = regexp.MustCompile(`\((\d{2})/(\d{2})\)`)

// ColumnIndex maps an ISO date to the header column holding its codes.
type ColumnIndex map[string]int

// ResolveColumns binds every "(MM/DD)" header cell to a date in year.
// Identity columns and the trailing remarks column are never considered.
// Cells without the pattern, or naming an impossible day, are ignored.
func ResolveColumns(header tabular.Row, year int) ColumnIndex {
	index := ColumnIndex{}
	for i := identityColumns; i < len(header)-1; i++ {
		if date, ok := columnDate(header[i], year); ok {
			index[date] = i
		}
	}
	return index
}

// ResolveColumnsForRange resolves against the range's start year, then re-binds
// columns that only fall inside the range in a later year. This keeps a
// December..January range working.
func ResolveColumnsForRange(header tabular.Row, rng daterange.Range) ColumnIndex {
	years := rng.Years()
	index := ResolveColumns(header, years[0])
	for _, year := range years[1:] {
		for i := identityColumns; i < len(header)-1; i++ {
			date, ok := columnDate(header[i], year)
			if !ok {
				continue
			}
			day, _ := time.Parse(daterange.DateLayout, date)
			if rng.Contains(day) {
				index[date] = i
			}
		}
	}
	return index
}

func columnDate(cell string, year int) (string, bool) {
	m := dateColumnPattern.FindStringSubmatch(cell)
	if m == nil {
		return "", false
	}
	date := fmt.Sprintf("%04d-%s-%s", year, m[1], m[2])
	if _, err := time.Parse(daterange.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
