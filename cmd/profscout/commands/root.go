package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FranksOps/profscout/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "profscout",
	Short: "profscout finds professor profiles through a search engine and summarizes them.",
	Long: `profscout searches for professor profile pages, keeps the ones that belong
to the expected school and teach the expected class, and extracts a summary
(grade, difficulty, rating count and most recent review) from each.

Settings come from flags, PROFSCOUT_* environment variables and an optional
config file, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger = newLogger(c.LogLevel, c.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")

	f.StringSlice("keywords", nil, "search keywords, e.g. professor name and class")
	f.String("school", "", "school the professor must belong to (case-sensitive substring)")
	f.String("class", "", "class the professor must teach (case-insensitive)")

	f.String("search-url", "https://www.google.com/search", "search engine results endpoint")
	f.Int("search-results", 50, "results requested from the search engine")
	f.Int("limit", 0, "maximum candidates to process (0 = all)")
	f.String("domain-marker", "ratemyprofessor", "substring a result link must contain")
	f.String("cache-marker", "webcache.google", "substring that marks cached copies to skip")

	f.String("proxy-base", "", "cross-origin relay prefix prepended to every fetched URL")
	f.Int("concurrency", 3, "candidate pages fetched in parallel")
	f.Float64("requests-per-second", 1, "request rate limit (0 = unlimited)")
	f.Float64("jitter", 0.2, "random spread added to the rate limit (0-1)")
	f.Duration("timeout", 30*time.Second, "per-request timeout")
	f.String("fingerprint", "chrome", "TLS fingerprint: chrome, firefox, safari, random or go")
	f.StringSlice("user-agents", nil, "User-Agent strings to rotate through")
	f.String("proxies-file", "", "file with one outbound proxy URL per line")
	f.Bool("respect-robots", false, "skip candidates disallowed by robots.txt")
	f.Bool("cloudflare-bypass", false, "use browser-like transport defaults against Cloudflare checks")

	f.String("store", "", "result store: sqlite:<path>, postgres://..., json:<path> or csv:<path>")
	f.Int("metrics-port", 0, "serve prometheus metrics on this port (0 = off)")
	f.String("format", "text", "output format: text, json, html or table")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "text", "log format: text or json")
}

// ExecuteContext runs the root command and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
