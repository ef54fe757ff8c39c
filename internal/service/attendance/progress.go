package attendance

import (
	"log/slog"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/sse"
)

// Reporter observes a pipeline run. Calls arrive from the run goroutine only,
// in date order. Implementations must not block.
type Reporter interface {
	ReportProgress(p attendance.Progress)
	ReportTransition(date string, state attendance.DayState)
	ReportDay(result attendance.DayResult)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ReportProgress(attendance.Progress)           {}
func (NopReporter) ReportTransition(string, attendance.DayState) {}
func (NopReporter) ReportDay(attendance.DayResult)               {}

// Reporters fans every call out in order.
type Reporters []Reporter

func (rs Reporters) ReportProgress(p attendance.Progress) {
	for _, r := range rs {
		r.ReportProgress(p)
	}
}

func (rs Reporters) ReportTransition(date string, state attendance.DayState) {
	for _, r := range rs {
		r.ReportTransition(date, state)
	}
}

func (rs Reporters) ReportDay(result attendance.DayResult) {
	for _, r := range rs {
		r.ReportDay(result)
	}
}

// LogReporter writes one structured record per event.
type LogReporter struct {
	Logger   *slog.Logger
	UploadID string
}

func (l LogReporter) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l LogReporter) ReportProgress(p attendance.Progress) {
	l.logger().Debug(p.Message, "upload_id", l.UploadID, "processed_days", p.ProcessedDays, "total_days", p.TotalDays)
}

func (l LogReporter) ReportTransition(date string, state attendance.DayState) {
	l.logger().Debug("Attendance day transition", "upload_id", l.UploadID, "date", date, "state", state)
}

func (l LogReporter) ReportDay(result attendance.DayResult) {
	attrs := []any{
		"upload_id", l.UploadID,
		"date", result.Date,
		"state", result.State,
		"count", result.Count,
		"warnings", len(result.Warnings),
	}
	if result.Success {
		l.logger().Info("Attendance day submitted", attrs...)
		return
	}
	l.logger().Warn("Attendance day failed", append(attrs, "message", result.Message)...)
}

// HubReporter publishes run events on the upload's SSE topic.
type HubReporter struct {
	Hub   *sse.Hub
	Topic string
}

const (
	EventProgress   = "progress"
	EventTransition = "transition"
	EventDay        = "day"
	EventCompleted  = "completed"
)

func (h HubReporter) ReportProgress(p attendance.Progress) {
	h.Hub.Publish(h.Topic, sse.Event{Event: EventProgress, Data: p})
}

func (h HubReporter) ReportTransition(date string, state attendance.DayState) {
	h.Hub.Publish(h.Topic, sse.Event{Event: EventTransition, Data: attendance.DayStateResponse{Date: date, State: state}})
}

func (h HubReporter) ReportDay(result attendance.DayResult) {
	h.Hub.Publish(h.Topic, sse.Event{Event: EventDay, Data: result})
}
