package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/profscout/internal/document"
	"github.com/FranksOps/profscout/internal/metrics"
	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/serp"
	"github.com/FranksOps/profscout/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Auditor decides whether a candidate URL may be fetched.
type Auditor interface {
	Allowed(ctx context.Context, targetURL string) (bool, error)
}

// Request describes one lookup.
type Request struct {
	Keywords []string
	School   string
	Class    string
}

// Result is the outcome of a Run. Summaries follow candidate order.
type Result struct {
	RunID      string
	Query      string
	Candidates []string
	Summaries  []*profile.Summary
	// Dropped counts candidates lost to transport failures.
	Dropped   int
	StartedAt time.Time
	Duration  time.Duration
}

// Pipeline discovers candidate profile pages through a search provider,
// then validates and extracts each of them.
type Pipeline struct {
	SERPProvider serp.SERPProvider
	Fetcher      serp.TextFetcher
	Extractor    *profile.Extractor
	// Robots, when set, is consulted before each candidate is fetched.
	Robots Auditor
	// Backend, when set, receives every accepted summary.
	Backend storage.Backend
	// Concurrency bounds in-flight candidate fetches (<= 0 means 3).
	Concurrency int
	// Limit caps the number of candidates taken from the search (0 = all).
	Limit  int
	Logger *slog.Logger
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) extractor() *profile.Extractor {
	if p.Extractor == nil {
		return profile.NewExtractor(profile.DefaultSelectors(), p.logger())
	}
	return p.Extractor
}

// Discover searches for keywords and returns candidate profile URLs in
// result order. A transport failure is returned to the caller.
func (p *Pipeline) Discover(ctx context.Context, keywords []string) ([]string, error) {
	if p.SERPProvider == nil {
		return nil, errors.New("pipeline: SERPProvider is nil")
	}
	query := serp.BuildQuery(keywords)
	candidates, err := p.SERPProvider.Search(ctx, query, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", query, err)
	}
	urls := serp.URLs(candidates)
	metrics.RecordCandidates(len(urls))
	p.logger().Info("candidates discovered", "query", query, "count", len(urls))
	return urls, nil
}

// Extract fetches one candidate page and, if it belongs to school and
// teaches class, returns its Summary. Rejected or malformed pages yield
// nil, nil; only a transport failure is an error.
func (p *Pipeline) Extract(ctx context.Context, pageURL, school, class string) (*profile.Summary, error) {
	if p.Fetcher == nil {
		return nil, errors.New("pipeline: Fetcher is nil")
	}
	logger := p.logger()

	if p.Robots != nil {
		allowed, err := p.Robots.Allowed(ctx, pageURL)
		if err != nil {
			logger.Warn("robots.txt check failed", "url", pageURL, "err", err)
		} else if !allowed {
			logger.Info("candidate blocked by robots.txt", "url", pageURL)
			metrics.RecordVerdict(metrics.OutcomeRobots)
			return nil, nil
		}
	}

	body, err := p.Fetcher.FetchText(ctx, pageURL)
	if err != nil {
		metrics.RecordVerdict(metrics.OutcomeTransport)
		return nil, err
	}

	tree := document.ParseString(body)
	defer tree.Release()

	summary, verdict, err := p.extractor().Extract(tree, pageURL, school, class)
	switch {
	case errors.Is(err, profile.ErrStructure):
		logger.Warn("profile page structure unexpected", "url", pageURL, "err", err)
		metrics.RecordVerdict(metrics.OutcomeStructure)
		return nil, nil
	case err != nil:
		return nil, err
	case summary == nil:
		logger.Info("candidate rejected", "url", pageURL, "reason", verdict.Reject)
		metrics.RecordVerdict(string(verdict.Reject))
		return nil, nil
	}

	metrics.RecordVerdict(metrics.OutcomeAccepted)
	return summary, nil
}

// Run discovers candidates for req.Keywords and extracts every one that
// passes validation. Candidates are processed concurrently but the returned
// summaries keep the order in which the search listed them. A candidate
// whose fetch fails is logged and dropped; the run continues.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:     uuid.New().String(),
		Query:     serp.BuildQuery(req.Keywords),
		StartedAt: start.UTC(),
	}
	logger := p.logger().With("run_id", res.RunID)

	candidates, err := p.Discover(ctx, req.Keywords)
	if err != nil {
		return nil, err
	}
	res.Candidates = candidates

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	slots := make([]*profile.Summary, len(candidates))
	dropped := make([]bool, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range candidates {
		g.Go(func() error {
			summary, err := p.Extract(gCtx, u, req.School, req.Class)
			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Error("candidate dropped", "url", u, "err", err)
				dropped[i] = true
				return nil
			}
			slots[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	for i, s := range slots {
		if dropped[i] {
			res.Dropped++
		}
		if s == nil {
			continue
		}
		res.Summaries = append(res.Summaries, s)
		if p.Backend != nil {
			if err := p.Backend.Save(ctx, storage.NewRecord(res.RunID, req.Class, s)); err != nil {
				logger.Error("failed to save summary", "url", s.URL, "err", err)
			}
		}
	}

	res.Duration = time.Since(start)
	logger.Info("run complete", "candidates", len(candidates), "accepted", len(res.Summaries), "dropped", res.Dropped, "duration", res.Duration)
	return res, nil
}
