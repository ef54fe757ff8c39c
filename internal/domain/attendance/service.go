package attendance

import (
	"context"
)

// Store is the attendance store's bulk-write API, consumed once per date.
type Store interface {
	BulkWrite(ctx context.Context, req BulkWriteRequest) (BulkWriteResult, error)
}

// HealthChecker is implemented by stores that can report reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RecordReader reads back what the store holds for one date.
type RecordReader interface {
	ListRecords(ctx context.Context, date string) ([]AttendanceRecord, error)
}

// BulkUploadService defines the template and upload operations
type BulkUploadService interface {
	// GenerateTemplate renders a blank attendance sheet for the roster over a range
	GenerateTemplate(ctx context.Context, req TemplateRequest) (TemplateFile, error)

	// StartUpload parses the document synchronously, then submits it day by day in the background
	StartUpload(ctx context.Context, req UploadRequest) (UploadRunResponse, error)

	// GetUpload returns the live snapshot of an upload run
	GetUpload(ctx context.Context, id string) (UploadRunResponse, error)

	// ListUploads returns every run still held in memory, newest first
	ListUploads(ctx context.Context) ([]UploadRunResponse, error)

	// CancelUpload stops a running upload after its in-flight submission settles
	CancelUpload(ctx context.Context, id string) (UploadRunResponse, error)

	// UploadReport renders the per-day result table of a finished run as PDF
	UploadReport(ctx context.Context, id string) ([]byte, error)

	// UploadDocument returns the archived copy of the uploaded sheet
	UploadDocument(ctx context.Context, id string) (TemplateFile, error)

	// Subscribe streams progress and per-day events of a run until it finishes
	Subscribe(ctx context.Context, id string) (<-chan UploadEvent, func(), error)
}
