package main

import (
	"fmt"
	"os"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
	attendanceService "github.com/cmlabs-hris/attendance-ingest/internal/service/attendance"
	"github.com/spf13/cobra"
)

func newTemplateCommand() *cobra.Command {
	var (
		rosterPath string
		startDate  string
		endDate    string
		format     string
		department string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank attendance sheet for a roster file",
		Example: "  attendancectl template --roster roster.csv --start 2024-06-03 --end 2024-06-07 --format xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := daterange.Parse(startDate, endDate)
			if err != nil {
				return err
			}
			f, err := tabular.ParseFormat(format)
			if err != nil {
				return err
			}

			roster, err := readRoster(rosterPath)
			if err != nil {
				return err
			}
			var filter employee.RosterFilter
			if department != "" {
				filter.Department = &department
			}
			entries, err := roster.ListRoster(cmd.Context(), filter)
			if err != nil {
				return err
			}

			data, err := attendanceService.EncodeTemplate(f, attendanceService.BuildTemplate(entries, rng))
			if err != nil {
				return err
			}

			if out == "" {
				out = attendance.TemplateFileName(startDate, endDate, f)
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s: %d employees, %d days\n", out, len(entries), rng.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster file (csv or xlsx) with EmployeeId, Name, Department columns")
	cmd.Flags().StringVar(&startDate, "start", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&endDate, "end", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVar(&department, "department", "", "only employees of this department")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default attendance_<start>_<end>.<format>)")
	_ = cmd.MarkFlagRequired("roster")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func readRoster(path string) (*attendanceService.FileRoster, error) {
	doc, _, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return attendanceService.ParseRoster(doc)
}

// readDocument loads and parses a csv or xlsx file.
func readDocument(path string) (tabular.Document, tabular.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tabular.Document{}, "", err
	}
	format, err := tabular.DetectFormat(path, data)
	if err != nil {
		return tabular.Document{}, "", err
	}
	doc, err := tabular.Parse(format, data)
	if err != nil {
		return tabular.Document{}, "", fmt.Errorf("%s: %w", path, err)
	}
	return doc, format, nil
}
