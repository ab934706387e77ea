package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/FranksOps/profscout/internal/bypass"
	"github.com/FranksOps/profscout/internal/fingerprint"
	"github.com/FranksOps/profscout/internal/metrics"
	"github.com/FranksOps/profscout/pkg/httpclient"
	"github.com/FranksOps/profscout/pkg/proxy"
	"github.com/FranksOps/profscout/pkg/ratelimit"
	"github.com/FranksOps/profscout/pkg/useragent"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchConfig configures the transport.
type FetchConfig struct {
	Timeout time.Duration
	// MaxRedirects defaults to 10; negative disables redirects.
	MaxRedirects int
	UseCookieJar bool
	// ProxyBase is prepended verbatim to every target URL, for environments
	// that must go through a cross-origin relay ("https://relay/" + url).
	ProxyBase   string
	ProxyPool   *proxy.Pool
	UAPool      *useragent.Pool
	Fingerprint fingerprint.Profile
	Limiter     *ratelimit.Limiter
	// CloudflareBypass wraps the transport with browser-like header and
	// cipher defaults that get past Cloudflare's basic bot check.
	CloudflareBypass bool
	// MaxBodyBytes caps how much of a response is read (0 = 10 MiB).
	MaxBodyBytes int64
}

// Fetcher loads remote resources. It is safe for concurrent use.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a new Fetcher with the given configuration.
// A single client is held across requests so connections and cookies are
// reused for the lifetime of the Fetcher.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}

	// Per-request proxy rotation: the proxy chosen in Fetch travels in the
	// request context.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		if req.URL.Hostname() == "127.0.0.1" || req.URL.Hostname() == "localhost" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}
	if cfg.CloudflareBypass {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
		// Google answers suspected bots with a redirect to /sorry/; keep the
		// redirect so bypass detection sees its Location.
		StopAt: func(u *url.URL) bool {
			return strings.HasPrefix(u.Path, "/sorry/")
		},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
	}, nil
}

// Close releases idle connections held by the transport.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// ProxyStats reports the health of the outbound proxy pool, if any.
func (f *Fetcher) ProxyStats() []proxy.Stat {
	if f.config.ProxyPool == nil {
		return nil
	}
	return f.config.ProxyPool.Stats()
}

// ProxiedURL applies the configured cross-origin proxy base to targetURL.
func (f *Fetcher) ProxiedURL(targetURL string) string {
	if f.config.ProxyBase == "" {
		return targetURL
	}
	return f.config.ProxyBase + targetURL
}

// Fetch executes a GET request to targetURL. Transport problems are recorded
// in Page.Error rather than returned, so a partial Page is always available
// for logging and metrics. The only error returned is ctx's, once it is done.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	fetchURL := f.ProxiedURL(targetURL)
	start := time.Now()
	page := &Page{
		ID:        uuid.New().String(),
		URL:       targetURL,
		FetchURL:  fetchURL,
		CreatedAt: start.UTC(),
	}
	defer func() {
		metrics.RecordFetch(hostOf(targetURL), page.StatusCode, page.Error != "", page.DetectionSrc, page.Duration, len(page.Body))
	}()

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			page.Error = fmt.Sprintf("rate limiter failed: %v", err)
			return page, ctx.Err()
		}
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		page.Error = fmt.Sprintf("failed to create request: %v", err)
		page.Duration = time.Since(start)
		return page, nil
	}
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", f.config.UAPool.For(string(f.config.Fingerprint)))

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil && ctx.Err() == nil {
			_ = f.config.ProxyPool.Report(activeProxy, proxy.Failed)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		page.Error = fmt.Sprintf("request failed: %v", err)
		page.Duration = time.Since(start)
		return page, ctx.Err()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	page.StatusCode = resp.StatusCode
	page.Headers = resp.Header
	page.Body = body
	page.Duration = time.Since(start)

	page.DetectedBot, page.DetectionSrc = bypass.Analyze(page.StatusCode, page.Headers, page.Body, bypass.DefaultDetectors())

	if activeProxy != nil {
		outcome := proxy.OK
		if page.DetectedBot {
			outcome = proxy.Challenged
		}
		_ = f.config.ProxyPool.Report(activeProxy, outcome)
	}

	return page, nil
}

// FetchText loads targetURL and returns its body. Anything short of a clean
// 200 response, including a bot challenge page, is a *TransportError.
func (f *Fetcher) FetchText(ctx context.Context, targetURL string) (string, error) {
	page, err := f.Fetch(ctx, targetURL)
	if err != nil {
		return "", &TransportError{URL: targetURL, Reason: "cancelled", Err: err}
	}
	if err := page.transportError(); err != nil {
		return "", err
	}
	return string(page.Body), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
