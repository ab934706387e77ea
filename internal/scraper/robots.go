package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor checks candidate profile URLs against the host's
// robots.txt. Each host's rules are fetched once and cached.
type RobotsTxtAuditor struct {
	fetcher   *Fetcher
	logger    *slog.Logger
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotsEntry
}

// robotsEntry is a host's rules; ready closes once they are loaded.
type robotsEntry struct {
	ready chan struct{}
	data  *robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates an auditor evaluating rules for userAgent
// ("*" if empty).
func NewRobotsTxtAuditor(fetcher *Fetcher, userAgent string, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = "*"
	}
	return &RobotsTxtAuditor{
		fetcher:   fetcher,
		logger:    logger,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
	}
}

// Allowed reports whether targetURL may be fetched. A robots.txt that cannot
// be loaded allows everything.
func (r *RobotsTxtAuditor) Allowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("invalid url: %q is not absolute", targetURL)
	}

	data, err := r.rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return false, err
	}
	if data == nil {
		return true, nil
	}
	return data.FindGroup(r.userAgent).Test(u.EscapedPath()), nil
}

// rules returns the cached rules for host, loading them on first use. Only
// callers for the same host wait on a load in progress.
func (r *RobotsTxtAuditor) rules(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	e, ok := r.cache[host]
	if !ok {
		e = &robotsEntry{ready: make(chan struct{})}
		r.cache[host] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
			return e.data, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data, err := r.load(ctx, host)
	e.data = data
	if err != nil {
		// Cancelled loads are not cached; the next caller retries.
		r.mu.Lock()
		delete(r.cache, host)
		r.mu.Unlock()
	}
	close(e.ready)
	return data, err
}

func (r *RobotsTxtAuditor) load(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	page, err := r.fetcher.Fetch(ctx, host+"/robots.txt")
	if err != nil {
		return nil, err
	}
	if page.Error != "" {
		r.logger.Debug("robots.txt fetch failed, allowing", "host", host, "err", page.Error)
		return nil, nil
	}
	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable, allowing", "host", host, "err", err)
		return nil, nil
	}
	return data, nil
}
