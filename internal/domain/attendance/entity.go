package attendance

import (
	"time"
)

// AttendanceRecord is one employee's attendance for one day.
// ID is only set when updating an existing record.
type AttendanceRecord struct {
	ID         *int    `json:"id,omitempty"`
	EmployeeID int     `json:"employeeId"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Status     Status  `json:"status"`
	Reason     *string `json:"reason,omitempty"`
	Remarks    *string `json:"remarks,omitempty"`
}

// UploadBatch is one date's employee -> status map, built right before submission.
type UploadBatch struct {
	Date      string
	StatusMap map[int]Status
	Remarks   string
}

// Records flattens the batch, ordered by nothing in particular.
func (b UploadBatch) Records() []AttendanceRecord {
	records := make([]AttendanceRecord, 0, len(b.StatusMap))
	for employeeID, status := range b.StatusMap {
		rec := AttendanceRecord{
			EmployeeID: employeeID,
			Date:       b.Date,
			Status:     status,
		}
		if b.Remarks != "" {
			remarks := b.Remarks
			rec.Remarks = &remarks
		}
		records = append(records, rec)
	}
	return records
}

// DayState tracks a single date through the submission loop.
type DayState string

const (
	DayPending    DayState = "PENDING"
	DaySubmitting DayState = "SUBMITTING"
	DaySucceeded  DayState = "SUCCEEDED"
	DayFailed     DayState = "FAILED"
)

// DayResult is the outcome of one date, produced whether or not the store was called.
type DayResult struct {
	Date      string   `json:"date"`
	Success   bool     `json:"success"`
	Count     int      `json:"count"`
	Message   string   `json:"message"`
	State     DayState `json:"state"`
	Submitted bool     `json:"submitted"`
	Warnings  []string `json:"warnings,omitempty"`
}

// UploadOutcome folds all DayResults of one run.
type UploadOutcome struct {
	Success      bool        `json:"success"`
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Message      string      `json:"message"`
	Cancelled    bool        `json:"cancelled,omitempty"`
	DailyResults []DayResult `json:"daily_results"`
}

// Progress is emitted before each date is processed.
type Progress struct {
	ProcessedDays int    `json:"processed_days"`
	TotalDays     int    `json:"total_days"`
	Message       string `json:"message"`
}

// UploadStatus is the lifecycle of a whole upload run.
type UploadStatus string

const (
	UploadQueued    UploadStatus = "queued"
	UploadRunning   UploadStatus = "running"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
	UploadCancelled UploadStatus = "cancelled"
)

// Finished reports whether the run reached a terminal status.
func (s UploadStatus) Finished() bool {
	return s == UploadCompleted || s == UploadFailed || s == UploadCancelled
}

// UploadRun is the persisted and observable record of one upload.
type UploadRun struct {
	ID          string
	FileName    string
	Format      string
	Fingerprint string
	ArchivePath *string
	StartDate   string
	EndDate     string
	Remarks     string
	DryRun      bool
	Status      UploadStatus
	Progress    Progress
	DayStates   map[string]DayState
	Outcome     *UploadOutcome
	Error       *string
	CreatedBy   *string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}
