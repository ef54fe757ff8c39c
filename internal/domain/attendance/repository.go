package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the PostgreSQL side of the attendance store.
type AttendanceRepository interface {
	// BulkUpsert writes one status per employee for a single date and returns the
	// written records. Existing (employee, date) rows are overwritten.
	BulkUpsert(ctx context.Context, date time.Time, statuses map[int]Status, remarks string) ([]AttendanceRecord, error)

	// ListByDate returns every record stored for a date, ordered by employee.
	ListByDate(ctx context.Context, date time.Time) ([]AttendanceRecord, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}

// UploadRunRepository persists upload run history.
type UploadRunRepository interface {
	Create(ctx context.Context, run UploadRun) error
	Finish(ctx context.Context, run UploadRun) error
	GetByID(ctx context.Context, id string) (UploadRun, error)
	// FindCompletedByFingerprint returns the latest completed, non dry-run upload of
	// an identical document over the same range, if any.
	FindCompletedByFingerprint(ctx context.Context, fingerprint, startDate, endDate string) (*UploadRun, error)
}
