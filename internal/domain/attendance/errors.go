package attendance

import (
	"errors"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
)

// Attendance domain errors
var (
	// Structural errors, fatal for a whole upload
	ErrEmptyDocument      = tabular.ErrEmptyDocument
	ErrMalformedDocument  = tabular.ErrMalformedDocument
	ErrUnsupportedFormat  = tabular.ErrUnsupportedFormat
	ErrInvalidRange       = daterange.ErrInvalidRange
	ErrDocumentTooLarge   = errors.New("document exceeds the maximum upload size")
	ErrUnknownStatus      = errors.New("unknown attendance status")
	ErrEmptyAttendanceMap = errors.New("attendance map must contain at least one employee")

	// Upload run errors
	ErrUploadNotFound       = errors.New("upload not found")
	ErrUploadNotFinished    = errors.New("upload has not finished yet")
	ErrUploadAlreadyStopped = errors.New("upload has already finished")
	ErrDocumentNotArchived  = errors.New("uploaded document was not archived")

	// Store errors
	ErrStoreUnavailable = errors.New("attendance store is unavailable")
	ErrNoStrategy       = errors.New("attendance store accepted none of the submission formats")
)

// StoreError is a rejection reported by the attendance store. Message is the
// store's own human-readable text and becomes the DayResult message.
type StoreError struct {
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	return e.Message
}
