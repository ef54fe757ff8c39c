package attendance

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
)

const (
	MessageNoColumn  = "No data column found for this date"
	MessageNoEntries = "No valid entries found for this date"

	maxWarnings = 20
)

// BuildBatch scans every row for one date. When ready is false the returned
// DayResult is final and nothing must be submitted for the date. Otherwise the
// DayResult carries only the date and warnings, to be completed after submission.
func BuildBatch(date string, index ColumnIndex, rows []tabular.Row, remarks string) (batch attendance.UploadBatch, result attendance.DayResult, ready bool) {
	result = attendance.DayResult{Date: date, State: attendance.DayPending}

	col, ok := index[date]
	if !ok {
		result.State = attendance.DayFailed
		result.Message = MessageNoColumn
		return batch, result, false
	}

	batch = attendance.UploadBatch{
		Date:      date,
		StatusMap: make(map[int]attendance.Status),
		Remarks:   remarks,
	}

	var warnings []string
	dropped := 0
	warn := func(format string, args ...interface{}) {
		if len(warnings) < maxWarnings {
			warnings = append(warnings, fmt.Sprintf(format, args...))
			return
		}
		dropped++
	}

	for n, row := range rows {
		if row.Blank() {
			continue
		}
		code := row.Cell(col)

		employeeID, ok := validator.ParseEmployeeID(row.Cell(0))
		if !ok {
			if code != "" {
				warn("data row %d: employee id %q is not a positive number, code %q ignored", n+1, row.Cell(0), code)
			}
			continue
		}

		status, ok := attendance.TranslateCode(code)
		if !ok {
			if code != "" {
				warn("employee %d: unrecognized status code %q", employeeID, code)
			}
			continue
		}
		batch.StatusMap[employeeID] = status
	}

	if dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d more warnings not shown", dropped))
	}
	result.Warnings = warnings

	if len(batch.StatusMap) == 0 {
		result.State = attendance.DayFailed
		result.Message = MessageNoEntries
		return attendance.UploadBatch{}, result, false
	}

	return batch, result, true
}
