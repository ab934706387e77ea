package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/profscout/internal/config"
	"github.com/FranksOps/profscout/internal/fingerprint"
	"github.com/FranksOps/profscout/internal/pipeline"
	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/scraper"
	"github.com/FranksOps/profscout/internal/serp"
	"github.com/FranksOps/profscout/internal/storage"
	"github.com/FranksOps/profscout/internal/storage/csvbackend"
	"github.com/FranksOps/profscout/internal/storage/jsonbackend"
	"github.com/FranksOps/profscout/internal/storage/postgres"
	"github.com/FranksOps/profscout/internal/storage/sqlite"
	"github.com/FranksOps/profscout/pkg/proxy"
	"github.com/FranksOps/profscout/pkg/ratelimit"
	"github.com/FranksOps/profscout/pkg/useragent"
)

func newFetcher(c *config.Config) (*scraper.Fetcher, error) {
	fp, err := fingerprint.ParseProfile(c.Fingerprint)
	if err != nil {
		return nil, err
	}

	fc := scraper.FetchConfig{
		Timeout:          c.Timeout,
		UseCookieJar:     true,
		ProxyBase:        c.ProxyBase,
		UAPool:           useragent.NewPool(c.UserAgents),
		Fingerprint:      fp,
		Limiter:          ratelimit.NewLimiter(c.RequestsPerSecond, c.Jitter),
		CloudflareBypass: c.CloudflareBypass,
	}
	if c.ProxiesFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(c.ProxiesFile); err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
		fc.ProxyPool = pool
	}
	return scraper.NewFetcher(fc)
}

func newPipeline(c *config.Config, fetcher *scraper.Fetcher, backend storage.Backend) *pipeline.Pipeline {
	p := &pipeline.Pipeline{
		SERPProvider: &serp.GoogleScrape{
			Fetcher: fetcher,
			BaseURL: c.SearchURL,
			Results: c.SearchResults,
			Filter:  serp.Filter{DomainMarker: c.DomainMarker, CacheMarker: c.CacheMarker},
			Logger:  logger,
		},
		Fetcher:     fetcher,
		Extractor:   profile.NewExtractor(profile.DefaultSelectors(), logger),
		Backend:     backend,
		Concurrency: c.Concurrency,
		Limit:       c.Limit,
		Logger:      logger,
	}
	if c.RespectRobots {
		p.Robots = scraper.NewRobotsTxtAuditor(fetcher, "*", logger)
	}
	return p
}

// openStore opens the backend named by dsn:
//
//	sqlite:<path>           (":memory:" allowed)
//	postgres://... or postgresql://...
//	json:<path>             newline-delimited JSON
//	csv:<path>
func openStore(ctx context.Context, dsn string) (storage.Backend, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.New(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.New(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "json:"):
		return jsonbackend.New(strings.TrimPrefix(dsn, "json:"))
	case strings.HasPrefix(dsn, "csv:"):
		return csvbackend.New(strings.TrimPrefix(dsn, "csv:"))
	default:
		return nil, fmt.Errorf("unsupported store %q", dsn)
	}
}
