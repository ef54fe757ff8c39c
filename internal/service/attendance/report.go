package attendance

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/jung-kurt/gofpdf"
)

const reportMessageWidth = 70

// RenderReport draws the summary and per-day result table of a finished run.
func RenderReport(run attendance.UploadRun) ([]byte, error) {
	if run.Outcome == nil {
		return nil, attendance.ErrUploadNotFinished
	}
	outcome := run.Outcome

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Attendance Upload Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("File: %s", run.FileName)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", run.StartDate, run.EndDate))
	pdf.Ln(6)
	status := string(run.Status)
	if run.DryRun {
		status += " (dry run)"
	}
	pdf.Cell(0, 7, fmt.Sprintf("Status: %s", status))
	pdf.Ln(6)
	if run.FinishedAt != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Finished: %s", run.FinishedAt.Format(time.RFC1123)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, tr(outcome.Message))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Records written: %d, failed days: %d", outcome.SuccessCount, outcome.FailureCount))
	pdf.Ln(10)

	widths := []float64{28, 24, 16, 122}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(220, 220, 220)
	for i, title := range []string{"Date", "Result", "Count", "Message"} {
		pdf.CellFormat(widths[i], 7, title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, day := range outcome.DailyResults {
		result := "FAILED"
		if day.Success {
			result = "OK"
		}
		message := day.Message
		if len(day.Warnings) > 0 {
			message = fmt.Sprintf("%s (%d warnings)", message, len(day.Warnings))
		}
		pdf.CellFormat(widths[0], 6, day.Date, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, result, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", day.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(truncate(message, reportMessageWidth)), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render upload report: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
