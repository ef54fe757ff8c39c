package attendance

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
)

// Aggregate folds the ordered day results of one run.
func Aggregate(results []attendance.DayResult) attendance.UploadOutcome {
	successfulDays, successCount := 0, 0
	for _, r := range results {
		if r.Success {
			successfulDays++
			successCount += r.Count
		}
	}

	total := len(results)
	return attendance.UploadOutcome{
		Success:      successfulDays > 0,
		SuccessCount: successCount,
		FailureCount: total - successfulDays,
		Message:      fmt.Sprintf("Processed attendance for %d out of %d days", successfulDays, total),
		DailyResults: results,
	}
}
