package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var storeErr *attendance.StoreError
	if errors.As(err, &storeErr) {
		StoreRejected(w, storeErr.StatusCode, storeErr.Message)
		return
	}

	switch {
	// Document errors
	case errors.Is(err, attendance.ErrEmptyDocument),
		errors.Is(err, attendance.ErrMalformedDocument),
		errors.Is(err, attendance.ErrUnsupportedFormat),
		errors.Is(err, attendance.ErrInvalidRange),
		errors.Is(err, attendance.ErrUnknownStatus),
		errors.Is(err, attendance.ErrEmptyAttendanceMap):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrDocumentTooLarge):
		PayloadTooLarge(w, err.Error())

	// Upload run errors
	case errors.Is(err, attendance.ErrUploadNotFound):
		NotFound(w, "Upload not found")
	case errors.Is(err, attendance.ErrDocumentNotArchived):
		NotFound(w, "Uploaded document is not available")
	case errors.Is(err, attendance.ErrUploadNotFinished):
		Conflict(w, "Upload has not finished yet")
	case errors.Is(err, attendance.ErrUploadAlreadyStopped):
		Conflict(w, "Upload has already finished")

	// Store errors
	case errors.Is(err, attendance.ErrStoreUnavailable),
		errors.Is(err, attendance.ErrNoStrategy):
		ServiceUnavailable(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
