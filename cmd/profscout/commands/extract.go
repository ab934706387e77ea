package commands

import (
	"time"

	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/report"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract --school <s> --class <c> <url>...",
	Short: "Validates and summarizes the given profile pages without searching.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Require("school", "class"); err != nil {
			return err
		}
		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		p := newPipeline(cfg, fetcher, nil)
		start := time.Now()
		rep := report.Report{
			School:     cfg.School,
			Class:      cfg.Class,
			Candidates: len(args),
			StartTime:  start.UTC(),
			Profiles:   []*profile.Summary{},
		}
		for _, u := range args {
			s, err := p.Extract(cmd.Context(), u, cfg.School, cfg.Class)
			if err != nil {
				logger.Error("candidate dropped", "url", u, "err", err)
				rep.Dropped++
				continue
			}
			if s != nil {
				rep.Profiles = append(rep.Profiles, s)
			}
		}
		rep.Duration = time.Since(start)
		rep.EndTime = rep.StartTime.Add(rep.Duration)
		return report.Write(cmd.OutOrStdout(), cfg.Format, rep)
	},
}
