package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Outcome is what a request through a proxy ended with.
type Outcome int

const (
	// OK means the proxy delivered a response.
	OK Outcome = iota
	// Failed means the connection through the proxy failed.
	Failed
	// Challenged means the target answered with a bot challenge. The exit IP
	// is flagged for the target, so the proxy is benched at once.
	Challenged
)

var ErrUnknownProxy = errors.New("proxy not found in pool")

// Stat is a snapshot of one proxy's health.
type Stat struct {
	URL        string
	Successes  int
	Failures   int
	Challenges int
	Benched    bool
	BenchedTil time.Time
}

type endpoint struct {
	url        *url.URL
	key        string
	successes  int
	failures   int // consecutive, decays on success
	challenges int
	benchedTil time.Time
}

// Pool rotates outbound HTTP proxies round-robin, benching proxies that
// keep failing or get challenged until their cooldown passes.
type Pool struct {
	mu          sync.Mutex
	order       []*endpoint
	byKey       map[string]*endpoint
	cursor      int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures before disabling a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy remains disabled after hitting MaxFailures
	// or being challenged.
	Cooldown time.Duration
}

// NewPool creates a new proxy pool. If config values are zero, reasonable defaults are used.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		byKey:       make(map[string]*endpoint),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile reads proxies from a file in the format accepted by Load.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer file.Close()
	return p.Load(file)
}

// Load reads one proxy URL per line. Blank lines and lines starting with
// '#' are ignored.
func (p *Pool) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy list: %w", err)
	}
	return p.Add(urls...)
}

// Len returns the number of proxies in the pool, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Add parses raw proxy URLs and adds them to the pool. A bare host:port is
// taken as http. Duplicates are ignored. Nothing is added if any entry is
// invalid.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*url.URL, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return fmt.Errorf("parse proxy %q: unsupported scheme %q", raw, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("parse proxy %q: missing host", raw)
		}
		parsed = append(parsed, u)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range parsed {
		key := u.String()
		if _, ok := p.byKey[key]; ok {
			continue
		}
		e := &endpoint{url: u, key: key}
		p.byKey[key] = e
		p.order = append(p.order, e)
	}
	return nil
}

// Next returns the next proxy that is not benched, or nil when the pool is
// empty or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.order {
		e := p.order[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.order)
		if !e.benchedTil.IsZero() {
			if now.Before(e.benchedTil) {
				continue
			}
			e.benchedTil = time.Time{}
			e.failures = 0
		}
		return e.url
	}
	return nil
}

// Report records the outcome of a request made through proxyURL.
func (p *Pool) Report(proxyURL *url.URL, outcome Outcome) error {
	if proxyURL == nil {
		return errors.New("proxy url cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byKey[proxyURL.String()]
	if !ok {
		return ErrUnknownProxy
	}

	switch outcome {
	case OK:
		e.successes++
		if e.failures > 0 {
			e.failures--
		}
	case Failed:
		e.failures++
		if e.failures >= p.maxFailures {
			e.benchedTil = p.now().Add(p.cooldown)
		}
	case Challenged:
		e.challenges++
		e.benchedTil = p.now().Add(p.cooldown)
	default:
		return fmt.Errorf("unknown outcome %d", outcome)
	}
	return nil
}

// Stats returns a snapshot of every proxy in pool order.
func (p *Pool) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]Stat, 0, len(p.order))
	for _, e := range p.order {
		out = append(out, Stat{
			URL:        e.key,
			Successes:  e.successes,
			Failures:   e.failures,
			Challenges: e.challenges,
			Benched:    now.Before(e.benchedTil),
			BenchedTil: e.benchedTil,
		})
	}
	return out
}
