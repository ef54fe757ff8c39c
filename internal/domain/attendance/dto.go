package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/validator"
)

// ========================================
// TEMPLATE DTOs
// ========================================

type TemplateRequest struct {
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
	Format     string `json:"format"`     // csv, xlsx
	Department string `json:"department"` // optional roster filter
}

func (r *TemplateRequest) Validate(maxRangeDays int) error {
	var errs validator.ValidationErrors

	errs = append(errs, validateRange(r.StartDate, r.EndDate, maxRangeDays)...)

	if _, err := tabular.ParseFormat(r.Format); err != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "format",
			Message: "format must be one of: csv, xlsx",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type TemplateFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ========================================
// UPLOAD DTOs
// ========================================

type UploadRequest struct {
	FileName  string  `json:"-"`
	Data      []byte  `json:"-"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Remarks   string  `json:"remarks"`
	DryRun    bool    `json:"dry_run"`
	CreatedBy *string `json:"-"`
}

func (r *UploadRequest) Validate(maxRangeDays int, maxSize int64) error {
	var errs validator.ValidationErrors

	errs = append(errs, validateRange(r.StartDate, r.EndDate, maxRangeDays)...)

	if len(r.Data) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "file",
			Message: "attendance document is required",
		})
	} else if maxSize > 0 && int64(len(r.Data)) > maxSize {
		errs = append(errs, validator.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("attendance document must not exceed %d bytes", maxSize),
		})
	}

	if r.FileName != "" {
		if _, err := tabular.DetectFormat(r.FileName, r.Data); err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "file",
				Message: "invalid file type: only csv, xlsx allowed",
			})
		}
	}

	if len(r.Remarks) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "remarks",
			Message: "remarks must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DayStateResponse struct {
	Date  string   `json:"date"`
	State DayState `json:"state"`
}

type UploadRunResponse struct {
	ID          string             `json:"id"`
	FileName    string             `json:"file_name"`
	Format      string             `json:"format"`
	Fingerprint string             `json:"fingerprint"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	DryRun      bool               `json:"dry_run"`
	Status      UploadStatus       `json:"status"`
	Progress    Progress           `json:"progress"`
	Days        []DayStateResponse `json:"days"`
	Outcome     *UploadOutcome     `json:"outcome,omitempty"`
	Error       *string            `json:"error,omitempty"`
	DuplicateOf *string            `json:"duplicate_of,omitempty"`
	CreatedAt   string             `json:"created_at"`
	FinishedAt  *string            `json:"finished_at,omitempty"`
}

// NewUploadRunResponse renders a run snapshot with its days in date order.
func NewUploadRunResponse(run UploadRun) UploadRunResponse {
	days := make([]DayStateResponse, 0, len(run.DayStates))
	for date, state := range run.DayStates {
		days = append(days, DayStateResponse{Date: date, State: state})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	resp := UploadRunResponse{
		ID:          run.ID,
		FileName:    run.FileName,
		Format:      run.Format,
		Fingerprint: run.Fingerprint,
		StartDate:   run.StartDate,
		EndDate:     run.EndDate,
		DryRun:      run.DryRun,
		Status:      run.Status,
		Progress:    run.Progress,
		Days:        days,
		Outcome:     run.Outcome,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt.Format(time.RFC3339),
	}
	if run.FinishedAt != nil {
		finished := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp
}

// UploadEvent is one server-sent event of an upload run.
// Event is one of: progress, day, completed.
type UploadEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ========================================
// STORE DTOs
// ========================================

// BulkWriteRequest is the attendance store's bulk-write payload for one date.
type BulkWriteRequest struct {
	AttendanceDate string         `json:"attendanceDate"`
	AttendanceMap  map[int]Status `json:"attendanceMap"`
	Remarks        string         `json:"remarks"`
}

func (r *BulkWriteRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, valid := validator.IsValidDate(r.AttendanceDate); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "attendanceDate",
			Message: "attendanceDate must be in YYYY-MM-DD format",
		})
	}

	if len(r.AttendanceMap) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "attendanceMap",
			Message: ErrEmptyAttendanceMap.Error(),
		})
	}

	for employeeID, status := range r.AttendanceMap {
		if employeeID <= 0 {
			errs = append(errs, validator.ValidationError{
				Field:   "attendanceMap",
				Message: fmt.Sprintf("employee id %d must be a positive number", employeeID),
			})
			break
		}
		if !status.Valid() {
			errs = append(errs, validator.ValidationError{
				Field:   "attendanceMap",
				Message: fmt.Sprintf("status for employee %d must be one of: PRESENT, ABSENT, HALF_DAY, ON_LEAVE", employeeID),
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// BulkWriteResult is the store's summary. Either field may be empty.
type BulkWriteResult struct {
	Count   int                `json:"count"`
	Records []AttendanceRecord `json:"records,omitempty"`
}

type StoreStatusResponse struct {
	Mode          string  `json:"mode"`
	Healthy       bool    `json:"healthy"`
	LastCheckedAt *string `json:"last_checked_at,omitempty"`
	LastError     *string `json:"last_error,omitempty"`
}

func validateRange(startDate, endDate string, maxRangeDays int) validator.ValidationErrors {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(startDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(endDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if !startOK || !endOK {
		return errs
	}

	rng, err := daterange.New(start, end)
	if err != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
		return errs
	}

	if maxRangeDays > 0 && rng.Len() > maxRangeDays {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("date range must not exceed %d days", maxRangeDays),
		})
	}

	return errs
}

// TemplateFileName builds the download name for a range and format.
func TemplateFileName(startDate, endDate string, format tabular.Format) string {
	return fmt.Sprintf("attendance_%s_%s.%s",
		strings.ReplaceAll(startDate, "-", ""),
		strings.ReplaceAll(endDate, "-", ""),
		format,
	)
}
