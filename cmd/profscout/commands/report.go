package commands

import (
	"time"

	"github.com/FranksOps/profscout/internal/report"
	"github.com/FranksOps/profscout/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reportRunID  string
	reportSince  time.Duration
	reportOffset int
)

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "only records from this run")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only records created within this window, e.g. 24h")
	reportCmd.Flags().IntVar(&reportOffset, "offset", 0, "skip this many records")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report --store <dsn>",
	Short: "Prints stored summaries, newest first. --limit caps the count.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Require("store"); err != nil {
			return err
		}
		ctx := cmd.Context()

		b, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer b.Close()

		filter := storage.Filter{
			RunID:  reportRunID,
			School: cfg.School,
			Class:  cfg.Class,
			Limit:  cfg.Limit,
			Offset: reportOffset,
		}
		if reportSince > 0 {
			since := time.Now().Add(-reportSince)
			filter.Since = &since
		}
		records, err := b.Query(ctx, filter)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), cfg.Format, report.FromRecords(records))
	},
}
