package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/profscout/internal/document"
)

const (
	DefaultSearchURL = "https://www.google.com/search"
	DefaultResults   = 50
)

// TextFetcher loads a resource as text.
type TextFetcher interface {
	FetchText(ctx context.Context, targetURL string) (string, error)
}

// GoogleScrape is a SERPProvider that fetches a Google results page and
// extracts candidate links from it.
type GoogleScrape struct {
	Fetcher TextFetcher
	// BaseURL defaults to DefaultSearchURL.
	BaseURL string
	// Results is the num= parameter, defaults to DefaultResults.
	Results int
	Filter  Filter
	Logger  *slog.Logger
}

// Search fetches a single results page for query. Fetch failures are
// returned to the caller; an unparsable page yields no candidates.
func (g *GoogleScrape) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}
	if g.Fetcher == nil {
		return nil, fmt.Errorf("google search: no fetcher configured")
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	filter := g.Filter
	if filter.DomainMarker == "" {
		filter = DefaultFilter()
	}

	target := SearchURL(g.BaseURL, query, g.Results)
	logger.Debug("searching", "url", target)

	body, err := g.Fetcher.FetchText(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	tree := document.ParseString(body)
	defer tree.Release()

	links := ExtractCandidates(tree, filter)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	candidates := make([]Candidate, 0, len(links))
	for _, l := range links {
		candidates = append(candidates, Candidate{URL: l})
	}
	logger.Debug("search complete", "query", query, "candidates", len(candidates))
	return candidates, nil
}

// BuildQuery combines keywords into a single query string: joined with '+',
// spaces replaced by '+', lowercased.
func BuildQuery(keywords []string) string {
	q := strings.Join(keywords, "+")
	q = strings.ReplaceAll(q, " ", "+")
	return strings.ToLower(q)
}

// SearchURL assembles the results page URL for a query built by BuildQuery.
// The query's '+' delimiters are kept as-is; other reserved characters are
// escaped.
func SearchURL(base, query string, num int) string {
	if base == "" {
		base = DefaultSearchURL
	}
	if num <= 0 {
		num = DefaultResults
	}
	parts := strings.Split(query, "+")
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "q=" + strings.Join(parts, "+") + "&num=" + strconv.Itoa(num)
}
