package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover --keywords <a,b,...>",
	Short: "Prints candidate profile URLs found on the search results page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Require("keywords"); err != nil {
			return err
		}
		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		defer fetcher.Close()

		urls, err := newPipeline(cfg, fetcher, nil).Discover(cmd.Context(), cfg.Keywords)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}
