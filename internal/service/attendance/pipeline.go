package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
)

const (
	MessageCancelled    = "Upload cancelled before this date was submitted"
	messageSubmitFailed = "Failed to submit attendance"
)

// Pipeline turns a filled attendance document into one store write per date.
type Pipeline struct {
	store attendance.Store
}

func NewPipeline(store attendance.Store) *Pipeline {
	return &Pipeline{store: store}
}

// Ingest parses raw document bytes and runs them. Structural errors are returned
// before the store is touched.
func (p *Pipeline) Ingest(ctx context.Context, format tabular.Format, data []byte, rng daterange.Range, remarks string, reporter Reporter) (attendance.UploadOutcome, error) {
	doc, err := tabular.Parse(format, data)
	if err != nil {
		return attendance.UploadOutcome{}, err
	}
	return p.Run(ctx, doc, rng, remarks, reporter)
}

// Run visits every date of rng exactly once, in order, with at most one
// submission in flight. Per-date failures are folded into the outcome.
//
// Once ctx is cancelled the remaining dates are recorded as cancelled without
// being submitted. A submission already in flight is allowed to settle.
func (p *Pipeline) Run(ctx context.Context, doc tabular.Document, rng daterange.Range, remarks string, reporter Reporter) (attendance.UploadOutcome, error) {
	if len(doc.Rows) == 0 {
		return attendance.UploadOutcome{}, attendance.ErrEmptyDocument
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	index := ResolveColumnsForRange(doc.Header, rng)
	days := rng.Days()
	total := len(days)
	results := make([]attendance.DayResult, 0, total)
	cancelled := false

	for i, day := range days {
		date := daterange.Format(day)

		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if cancelled {
			result := attendance.DayResult{
				Date:    date,
				State:   attendance.DayFailed,
				Message: MessageCancelled,
			}
			reporter.ReportDay(result)
			results = append(results, result)
			continue
		}

		reporter.ReportProgress(attendance.Progress{
			ProcessedDays: i + 1,
			TotalDays:     total,
			Message:       fmt.Sprintf("Processing attendance for %s (%d/%d)", date, i+1, total),
		})

		batch, result, ready := BuildBatch(date, index, doc.Rows, remarks)
		if ready {
			result = p.submit(ctx, batch, result, reporter)
		}

		reporter.ReportDay(result)
		results = append(results, result)
	}

	outcome := Aggregate(results)
	outcome.Cancelled = cancelled
	return outcome, nil
}

func (p *Pipeline) submit(ctx context.Context, batch attendance.UploadBatch, result attendance.DayResult, reporter Reporter) attendance.DayResult {
	reporter.ReportTransition(batch.Date, attendance.DaySubmitting)
	result.State = attendance.DaySubmitting
	result.Submitted = true

	req := attendance.BulkWriteRequest{
		AttendanceDate: batch.Date,
		AttendanceMap:  batch.StatusMap,
		Remarks:        batch.Remarks,
	}

	// Cancelling the run must not abort a write the store may already be applying.
	res, err := p.store.BulkWrite(context.WithoutCancel(ctx), req)
	if err != nil {
		result.State = attendance.DayFailed
		result.Success = false
		result.Count = 0
		result.Message = storeErrorMessage(err)
		return result
	}

	count := res.Count
	if count == 0 {
		count = len(res.Records)
	}
	if count == 0 {
		count = len(batch.StatusMap)
	}

	result.State = attendance.DaySucceeded
	result.Success = true
	result.Count = count
	result.Message = fmt.Sprintf("Submitted %d records", count)
	return result
}

func storeErrorMessage(err error) string {
	var storeErr *attendance.StoreError
	if errors.As(err, &storeErr) && storeErr.Message != "" {
		return storeErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return messageSubmitFailed
}
