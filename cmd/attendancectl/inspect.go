package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/daterange"
	attendanceService "github.com/cmlabs-hris/attendance-ingest/internal/service/attendance"
	"github.com/spf13/cobra"
)

// sheetFlags are shared by the commands that read a filled attendance sheet.
type sheetFlags struct {
	file      string
	startDate string
	endDate   string
	remarks   string
}

func (f *sheetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "filled attendance sheet (csv or xlsx)")
	cmd.Flags().StringVar(&f.startDate, "start", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.endDate, "end", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.remarks, "remarks", "", "remarks stored with every record")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (f *sheetFlags) run(cmd *cobra.Command, store attendance.Store) (attendance.UploadOutcome, error) {
	rng, err := daterange.Parse(f.startDate, f.endDate)
	if err != nil {
		return attendance.UploadOutcome{}, err
	}
	doc, _, err := readDocument(f.file)
	if err != nil {
		return attendance.UploadOutcome{}, err
	}
	reporter := attendanceService.LogReporter{UploadID: f.file}
	return attendanceService.NewPipeline(store).Run(cmd.Context(), doc, rng, f.remarks, reporter)
}

func newInspectCommand() *cobra.Command {
	var sheet sheetFlags

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dry-run a filled sheet and print what each day would submit",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := sheet.run(cmd, attendanceService.DryRunStore{})
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}
	sheet.register(cmd)
	return cmd
}

func printOutcome(w io.Writer, outcome attendance.UploadOutcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tRESULT\tCOUNT\tMESSAGE")
	for _, day := range outcome.DailyResults {
		result := "ok"
		if !day.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", day.Date, result, day.Count, day.Message)
		for _, warning := range day.Warnings {
			fmt.Fprintf(tw, "\t\t\t  warning: %s\n", warning)
		}
	}
	_ = tw.Flush()
	fmt.Fprintln(w, outcome.Message)
}
