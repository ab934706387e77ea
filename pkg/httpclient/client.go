package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// DefaultMaxRedirects is used when Config.MaxRedirects is zero.
const DefaultMaxRedirects = 10

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects defaults to DefaultMaxRedirects; negative disables redirects.
	MaxRedirects int
	UseCookieJar bool
	// Header is applied to every request that does not set the key itself.
	Header http.Header
	// StopAt, when it returns true for a redirect target, ends the chain and
	// hands the redirect response back to the caller instead of following it.
	StopAt func(*url.URL) bool
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper
}

// Client wraps http.Client with a redirect policy, cookie persistence and
// default request headers.
type Client struct {
	hc     *http.Client
	header http.Header
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	hc := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	}
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if cfg.MaxRedirects < 0 {
			return http.ErrUseLastResponse
		}
		if cfg.StopAt != nil && cfg.StopAt(req.URL) {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
		}
		return nil
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: %w", err)
		}
		hc.Jar = jar
	}

	return &Client{hc: hc, header: cfg.Header.Clone()}, nil
}

// Do executes req under ctx, which bounds the request independently of the
// client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: nil context")
	}

	r := req.Clone(ctx)
	for k, v := range c.header {
		if r.Header.Get(k) == "" {
			r.Header[k] = v
		}
	}

	resp, err := c.hc.Do(r)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// Get is Do for a plain GET of rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: nil context")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return c.Do(ctx, req)
}

// CloseIdleConnections closes idle connections held by the transport.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}
