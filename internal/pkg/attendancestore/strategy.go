package attendancestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
)

// ResultKind tags the outcome of one submission attempt.
type ResultKind uint8

const (
	// ResultAccepted: the store wrote the batch.
	ResultAccepted ResultKind = iota + 1
	// ResultRejected: the store understood the request and refused it. Final.
	ResultRejected
	// ResultUnsupported: the store does not speak this request shape. Try the next strategy.
	ResultUnsupported
)

func (k ResultKind) String() string {
	switch k {
	case ResultAccepted:
		return "accepted"
	case ResultRejected:
		return "rejected"
	case ResultUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// SubmitResult is the structured outcome of one strategy.
// Result is set when Kind is ResultAccepted, Err otherwise.
type SubmitResult struct {
	Kind     ResultKind
	Strategy string
	Result   attendance.BulkWriteResult
	Err      error
}

// SubmissionStrategy turns a payload into one request shape the store may accept.
// Build must not perform I/O.
type SubmissionStrategy struct {
	Name  string
	Build func(ctx context.Context, baseURL string, req attendance.BulkWriteRequest) (*http.Request, error)
}

// DefaultStrategies is the order in which request shapes are tried.
func DefaultStrategies() []SubmissionStrategy {
	return []SubmissionStrategy{
		BulkMapStrategy(),
		RecordListStrategy(),
		PerDateStrategy(),
	}
}

// BulkMapStrategy posts the payload as is to /attendance/bulk.
func BulkMapStrategy() SubmissionStrategy {
	return SubmissionStrategy{
		Name: "bulk-map",
		Build: func(ctx context.Context, baseURL string, req attendance.BulkWriteRequest) (*http.Request, error) {
			return newJSONRequest(ctx, http.MethodPost, joinURL(baseURL, "attendance", "bulk"), req)
		},
	}
}

// RecordListStrategy posts one record per employee to /attendance/records/bulk.
func RecordListStrategy() SubmissionStrategy {
	return SubmissionStrategy{
		Name: "record-list",
		Build: func(ctx context.Context, baseURL string, req attendance.BulkWriteRequest) (*http.Request, error) {
			batch := attendance.UploadBatch{Date: req.AttendanceDate, StatusMap: req.AttendanceMap, Remarks: req.Remarks}
			return newJSONRequest(ctx, http.MethodPost, joinURL(baseURL, "attendance", "records", "bulk"), map[string]interface{}{
				"records": batch.Records(),
			})
		},
	}
}

// PerDateStrategy replaces one date's attendance with PUT /attendance/{date}.
func PerDateStrategy() SubmissionStrategy {
	return SubmissionStrategy{
		Name: "per-date",
		Build: func(ctx context.Context, baseURL string, req attendance.BulkWriteRequest) (*http.Request, error) {
			return newJSONRequest(ctx, http.MethodPut, joinURL(baseURL, "attendance", url.PathEscape(req.AttendanceDate)), map[string]interface{}{
				"attendanceMap": req.AttendanceMap,
				"remarks":       req.Remarks,
			})
		},
	}
}

func newJSONRequest(ctx context.Context, method, target string, body interface{}) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
