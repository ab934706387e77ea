package commands

import (
	"context"
	"time"

	"github.com/FranksOps/profscout/internal/metrics"
	"github.com/FranksOps/profscout/internal/pipeline"
	"github.com/FranksOps/profscout/internal/report"
	"github.com/FranksOps/profscout/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --keywords <a,b,...> --school <s> --class <c>",
	Short: "Searches for candidates, then validates and summarizes each of them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Require("keywords", "school", "class"); err != nil {
			return err
		}
		ctx := cmd.Context()

		if cfg.MetricsPort > 0 {
			srv := metrics.Start(cfg.MetricsPort)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(shutdownCtx)
			}()
		}

		var backend storage.Backend
		if cfg.Store != "" {
			b, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer b.Close()
			backend = b
		}

		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		res, err := newPipeline(cfg, fetcher, backend).Run(ctx, pipeline.Request{
			Keywords: cfg.Keywords,
			School:   cfg.School,
			Class:    cfg.Class,
		})
		for _, st := range fetcher.ProxyStats() {
			logger.Info("proxy health", "proxy", st.URL, "successes", st.Successes, "failures", st.Failures, "challenges", st.Challenges, "benched", st.Benched)
		}
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), cfg.Format, report.FromResult(res, cfg.School, cfg.Class))
	},
}
