package attendance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bxcodec/faker/v4"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/attendancestore"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end string) daterange.Range {
	t.Helper()
	rng, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return rng
}

func TestPipeline_ThreeDayExample(t *testing.T) {
	store := &recordingStore{}
	reporter := &captureReporter{}
	data := []byte(weekHeader + "7,Ana,Ops,P,A,H,\n")

	outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "week 23", reporter)
	require.NoError(t, err)

	require.Len(t, outcome.DailyResults, 3)
	for _, r := range outcome.DailyResults {
		assert.True(t, r.Success, r.Date)
		assert.Equal(t, 1, r.Count, r.Date)
		assert.Equal(t, attendance.DaySucceeded, r.State)
	}
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.FailureCount)
	assert.Equal(t, "Processed attendance for 3 out of 3 days", outcome.Message)

	calls := store.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "2024-06-03", calls[0].AttendanceDate)
	assert.Equal(t, attendance.StatusPresent, calls[0].AttendanceMap[7])
	assert.Equal(t, attendance.StatusAbsent, calls[1].AttendanceMap[7])
	assert.Equal(t, attendance.StatusHalfDay, calls[2].AttendanceMap[7])
	assert.Equal(t, "week 23", calls[2].Remarks)
}

func TestPipeline_MalformedHeaderDoesNotAbort(t *testing.T) {
	store := &recordingStore{}
	data := []byte("EmployeeId,Name,Department,Mon (06/03),Tuesday,Wed (06/05),Remarks\n7,Ana,Ops,P,A,H,\n")

	outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", nil)
	require.NoError(t, err)

	require.Len(t, outcome.DailyResults, 3)
	tuesday := outcome.DailyResults[1]
	assert.Equal(t, "2024-06-04", tuesday.Date)
	assert.False(t, tuesday.Success)
	assert.Equal(t, "No data column found for this date", tuesday.Message)
	assert.False(t, tuesday.Submitted)

	assert.True(t, outcome.DailyResults[0].Success)
	assert.True(t, outcome.DailyResults[2].Success)
	assert.Equal(t, 2, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailureCount)
	assert.Len(t, store.Calls(), 2)
}

func TestPipeline_OneRejectedDate(t *testing.T) {
	store := &recordingStore{reject: map[string]error{
		"2024-06-04": &attendance.StoreError{StatusCode: 409, Message: "attendance is locked for payroll"},
	}}
	data := []byte(weekHeader + "7,Ana,Ops,P,P,P,\n8,Budi,Ops,A,A,A,\n")

	outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", nil)
	require.NoError(t, err)

	require.Len(t, outcome.DailyResults, 3)
	rejected := outcome.DailyResults[1]
	assert.False(t, rejected.Success)
	assert.Equal(t, 0, rejected.Count)
	assert.Equal(t, "attendance is locked for payroll", rejected.Message)
	assert.Equal(t, attendance.DayFailed, rejected.State)
	assert.True(t, rejected.Submitted)

	assert.Equal(t, 4, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailureCount)
	assert.True(t, outcome.Success)
	assert.Len(t, store.Calls(), 3)
}

func TestPipeline_PlainStoreErrorMessage(t *testing.T) {
	store := &recordingStore{reject: map[string]error{"2024-06-03": errors.New("connection refused")}}
	data := []byte(weekHeader + "7,Ana,Ops,P,,,\n")

	outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "connection refused", outcome.DailyResults[0].Message)
	assert.Equal(t, MessageNoEntries, outcome.DailyResults[1].Message)
	assert.False(t, outcome.Success)
	assert.Equal(t, 3, outcome.FailureCount)
}

func TestPipeline_HeaderOnlyDocument(t *testing.T) {
	store := &recordingStore{}
	reporter := &captureReporter{}

	_, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, []byte(weekHeader), mustRange(t, "2024-06-03", "2024-06-05"), "", reporter)

	assert.ErrorIs(t, err, attendance.ErrEmptyDocument)
	assert.Empty(t, store.Calls())
	assert.Empty(t, reporter.progress)
}

func TestPipeline_RunRejectsDocumentWithoutRows(t *testing.T) {
	store := &recordingStore{}
	doc := tabular.Document{Header: tabular.Row{"EmployeeId"}}

	_, err := NewPipeline(store).Run(context.Background(), doc, mustRange(t, "2024-06-03", "2024-06-03"), "", nil)

	assert.ErrorIs(t, err, attendance.ErrEmptyDocument)
	assert.Empty(t, store.Calls())
}

func TestPipeline_ProgressAndTransitions(t *testing.T) {
	reporter := &captureReporter{}
	data := []byte(weekHeader + "7,Ana,Ops,P,,H,\n")

	_, err := NewPipeline(&recordingStore{}).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", reporter)
	require.NoError(t, err)

	require.Len(t, reporter.progress, 3)
	for i, p := range reporter.progress {
		assert.Equal(t, i+1, p.ProcessedDays)
		assert.Equal(t, 3, p.TotalDays)
	}
	assert.Equal(t, "Processing attendance for 2024-06-04 (2/3)", reporter.progress[1].Message)

	assert.Equal(t, []string{"2024-06-03:SUBMITTING", "2024-06-05:SUBMITTING"}, reporter.transitions)
	require.Len(t, reporter.days, 3)
	assert.Equal(t, attendance.DaySucceeded, reporter.days[0].State)
	assert.Equal(t, attendance.DayFailed, reporter.days[1].State)
}

func TestPipeline_CountFallbacks(t *testing.T) {
	data := []byte(weekHeader + "7,Ana,Ops,P,P,P,\n8,Budi,Ops,P,P,P,\n")

	cases := []struct {
		name   string
		result attendance.BulkWriteResult
		want   int
	}{
		{"count reported", attendance.BulkWriteResult{Count: 5}, 5},
		{"records returned", attendance.BulkWriteResult{Records: []attendance.AttendanceRecord{{EmployeeID: 7}}}, 1},
		{"nothing returned", attendance.BulkWriteResult{}, 2},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := &recordingStore{result: func(attendance.BulkWriteRequest) attendance.BulkWriteResult { return c.result }}
			outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-03"), "", nil)
			require.NoError(t, err)
			require.Len(t, outcome.DailyResults, 1)
			assert.Equal(t, c.want, outcome.DailyResults[0].Count)
			assert.Equal(t, c.want, outcome.SuccessCount)
		})
	}
}

func TestPipeline_CancelLetsInFlightSettle(t *testing.T) {
	store := newGatedStore()
	data := []byte(weekHeader + "7,Ana,Ops,P,P,P,\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan attendance.UploadOutcome, 1)
	go func() {
		outcome, err := NewPipeline(store).Ingest(ctx, tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", nil)
		assert.NoError(t, err)
		done <- outcome
	}()

	select {
	case <-store.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never started")
	}
	cancel()
	close(store.release)

	var outcome attendance.UploadOutcome
	select {
	case outcome = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	assert.True(t, outcome.Cancelled)
	require.Len(t, outcome.DailyResults, 3)
	assert.True(t, outcome.DailyResults[0].Success)
	for _, r := range outcome.DailyResults[1:] {
		assert.False(t, r.Success)
		assert.Equal(t, MessageCancelled, r.Message)
	}
	assert.Equal(t, 2, outcome.FailureCount)
}

func TestPipeline_TemplateRoundTrip(t *testing.T) {
	rng := mustRange(t, "2024-06-03", "2024-06-09")
	codes := attendance.Codes()

	roster := make([]employee.RosterEntry, 12)
	for i := range roster {
		roster[i] = employee.RosterEntry{
			EmployeeID: 100 + i,
			Name:       faker.Name(),
			Department: strings.ReplaceAll(faker.Word(), ",", ""),
		}
	}

	for _, format := range []tabular.Format{tabular.FormatCSV, tabular.FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			doc := BuildTemplate(roster, rng)

			// Fill every cell except one per row, so some employees are missing on some days.
			want := map[string]map[int]attendance.Status{}
			for r, row := range doc.Rows {
				for d, day := range rng.Days() {
					if (r+d)%5 == 0 {
						continue
					}
					code := codes[(r*7+d)%len(codes)]
					row[identityColumns+d] = code
					status, _ := attendance.TranslateCode(code)
					date := daterange.Format(day)
					if want[date] == nil {
						want[date] = map[int]attendance.Status{}
					}
					want[date][roster[r].EmployeeID] = status
				}
			}

			data, err := EncodeTemplate(format, doc)
			require.NoError(t, err)

			parsed, err := tabular.Parse(format, data)
			require.NoError(t, err)
			index := ResolveColumnsForRange(parsed.Header, rng)

			for _, day := range rng.Days() {
				date := daterange.Format(day)
				batch, _, ready := BuildBatch(date, index, parsed.Rows, "")
				require.True(t, ready, date)
				assert.Equal(t, want[date], batch.StatusMap, fmt.Sprintf("date %s", date))
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	results := []attendance.DayResult{
		{Date: "2024-06-03", Success: true, Count: 4},
		{Date: "2024-06-04", Success: false, Count: 0},
		{Date: "2024-06-05", Success: true, Count: 2},
	}

	outcome := Aggregate(results)

	assert.True(t, outcome.Success)
	assert.Equal(t, 6, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailureCount)
	assert.Equal(t, "Processed attendance for 2 out of 3 days", outcome.Message)
	assert.Equal(t, results, outcome.DailyResults)

	empty := Aggregate([]attendance.DayResult{{Date: "2024-06-03"}})
	assert.False(t, empty.Success)
	assert.Equal(t, 1, empty.FailureCount)
}

func TestPipeline_PlainTextStoreReplyCountsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	data := []byte(weekHeader + "7,Ana,Ops,P,A,H,\n8,Budi,Ops,P,P,,\n")
	store := attendancestore.NewClient(srv.URL, time.Second)

	outcome, err := NewPipeline(store).Ingest(context.Background(), tabular.FormatCSV, data, mustRange(t, "2024-06-03", "2024-06-05"), "", nil)
	require.NoError(t, err)

	require.Len(t, outcome.DailyResults, 3)
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.SuccessCount)

	june3 := outcome.DailyResults[0]
	assert.Equal(t, attendance.DaySucceeded, june3.State)
	assert.Equal(t, 2, june3.Count)

	june5 := outcome.DailyResults[2]
	assert.Equal(t, attendance.DaySucceeded, june5.State)
	assert.Equal(t, 1, june5.Count)
}
