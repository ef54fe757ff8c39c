package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/attendancestore"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/oauth"
	"github.com/spf13/cobra"
)

func newUploadCommand() *cobra.Command {
	var (
		sheet   sheetFlags
		baseURL string
		timeout time.Duration
		creds   oauth.ClientCredentials
		scopes  string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Submit a filled sheet day by day to an attendance store",
		Example: "  attendancectl upload -f week23.csv --start 2024-06-03 --end 2024-06-07 --store-url https://hris.example.com/api/v1",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []attendancestore.Option
			creds.Scopes = oauth.ParseScopes(scopes)
			if creds.Enabled() {
				opts = append(opts, attendancestore.WithHTTPClient(oauth.NewHTTPClient(context.Background(), creds, nil, timeout)))
			}
			client := attendancestore.NewClient(baseURL, timeout, opts...)

			if err := client.Ping(cmd.Context()); err != nil {
				if attendancestore.IsUnavailable(err) {
					return fmt.Errorf("attendance store at %s is unreachable: %w", baseURL, err)
				}
				return err
			}

			outcome, err := sheet.run(cmd, client)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome)

			if outcome.Cancelled {
				return errors.New("upload interrupted")
			}
			if !outcome.Success {
				return errors.New("no day was accepted by the store")
			}
			return nil
		},
	}

	sheet.register(cmd)
	cmd.Flags().StringVar(&baseURL, "store-url", "", "attendance store API base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "timeout of each store request")
	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth2 client id")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVar(&creds.TokenURL, "token-url", "", "OAuth2 token endpoint")
	cmd.Flags().StringVar(&scopes, "scopes", "", "OAuth2 scopes, comma separated")
	_ = cmd.MarkFlagRequired("store-url")
	return cmd
}
