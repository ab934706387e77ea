package useragent

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Browser families. They share names with the TLS fingerprint profiles so a
// request can present a User-Agent that agrees with its client hello.
const (
	Chrome  = "chrome"
	Firefox = "firefox"
	Safari  = "safari"
	Edge    = "edge"
	Other   = "other"
)

// Defaults are desktop browser User-Agents used when none are configured.
var Defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:143.0) Gecko/20100101 Firefox/143.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:142.0) Gecko/20100101 Firefox/142.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36 Edg/141.0.0.0",
}

// FamilyOf classifies a User-Agent string.
func FamilyOf(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"):
		return Edge
	case strings.Contains(ua, "Firefox/"):
		return Firefox
	case strings.Contains(ua, "Chrome/"):
		return Chrome
	case strings.Contains(ua, "Safari/"):
		return Safari
	}
	return Other
}

// Pool rotates User-Agents. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	all      []string
	byFamily map[string][]string
	chromium []string
	cursor   map[string]int
}

// NewPool builds a pool from uas, or from Defaults when uas is empty.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = Defaults
	}
	p := &Pool{
		all:      append([]string(nil), uas...),
		byFamily: make(map[string][]string),
		cursor:   make(map[string]int),
	}
	for _, ua := range p.all {
		f := FamilyOf(ua)
		p.byFamily[f] = append(p.byFamily[f], ua)
		if f == Chrome || f == Edge {
			p.chromium = append(p.chromium, ua)
		}
	}
	return p
}

// Next returns User-Agents round-robin across the whole pool.
func (p *Pool) Next() string {
	return p.next("", p.all)
}

// Random returns a uniformly chosen User-Agent.
func (p *Pool) Random() string {
	if len(p.all) == 0 {
		return ""
	}
	return p.all[rand.IntN(len(p.all))]
}

// For returns a User-Agent that matches the TLS profile name. Chrome hellos
// also cover Edge. "random" picks from the whole pool, and a profile with no
// matching agent (e.g. "go") falls back to Next.
func (p *Pool) For(profile string) string {
	switch profile {
	case "random":
		return p.Random()
	case Chrome:
		if ua := p.next(Chrome, p.chromium); ua != "" {
			return ua
		}
	default:
		if ua := p.next(profile, p.byFamily[profile]); ua != "" {
			return ua
		}
	}
	return p.Next()
}

func (p *Pool) next(key string, uas []string) string {
	if len(uas) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.cursor[key]
	p.cursor[key] = i + 1
	return uas[i%len(uas)]
}

// Len reports the number of User-Agents in the pool.
func (p *Pool) Len() int { return len(p.all) }
