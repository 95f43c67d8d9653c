package main

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/concierge/pkg/harvester"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Submit a scrape job and wait for the result",
	Long:  "Submits a scrape job to the harvester, polls until it finishes or the poll deadline elapses, and prints the scraped pages.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		ctx := cmd.Context()
		client := harvester.NewClient(cfg.Harvester.Key,
			harvester.WithBaseURL(cfg.Harvester.BaseURL),
			harvester.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Harvester.SubmitTimeoutSecs) * time.Second}),
		)

		job, err := client.Submit(ctx, args[0])
		if err != nil {
			return err
		}
		zap.L().Info("scrape job submitted", zap.String("job_id", job.ID))

		job, err = harvester.Await(ctx, client, job.ID, pollOptions()...)
		if err != nil {
			return err
		}
		if job == nil {
			return eris.New("no poll succeeded before the deadline")
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "status:\t%s\n", job.Status)
		if job.Error != "" {
			fmt.Fprintf(tw, "error:\t%s\n", job.Error)
		}
		for _, r := range job.Results {
			fmt.Fprintf(tw, "%s\t%d chars\n", r.URL, len(r.Content))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
