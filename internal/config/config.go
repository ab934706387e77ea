package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix is prepended to every environment override, e.g.
// PROFSCOUT_SCHOOL or PROFSCOUT_REQUESTS_PER_SECOND.
const EnvPrefix = "PROFSCOUT"

// Config holds every setting of a profscout invocation.
type Config struct {
	Keywords []string `mapstructure:"keywords"`
	School   string   `mapstructure:"school"`
	Class    string   `mapstructure:"class"`

	SearchURL     string `mapstructure:"search_url"`
	SearchResults int    `mapstructure:"search_results"`
	Limit         int    `mapstructure:"limit"`
	DomainMarker  string `mapstructure:"domain_marker"`
	CacheMarker   string `mapstructure:"cache_marker"`

	ProxyBase         string        `mapstructure:"proxy_base"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Jitter            float64       `mapstructure:"jitter"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Fingerprint       string        `mapstructure:"fingerprint"`
	UserAgents        []string      `mapstructure:"user_agents"`
	ProxiesFile       string        `mapstructure:"proxies_file"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	CloudflareBypass  bool          `mapstructure:"cloudflare_bypass"`

	Store       string `mapstructure:"store"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Format      string `mapstructure:"format"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"search_url":          "https://www.google.com/search",
	"search_results":      50,
	"limit":               0,
	"domain_marker":       "ratemyprofessor",
	"cache_marker":        "webcache.google",
	"concurrency":         3,
	"requests_per_second": 1.0,
	"jitter":              0.2,
	"timeout":             30 * time.Second,
	"fingerprint":         "chrome",
	"respect_robots":      false,
	"cloudflare_bypass":   false,
	"metrics_port":        0,
	"format":              "text",
	"log_level":           "info",
	"log_format":          "text",
}

var formats = map[string]bool{"text": true, "json": true, "html": true, "table": true}

// Load resolves configuration from, lowest precedence first: defaults, the
// config file at path (skipped when empty), PROFSCOUT_* environment
// variables and flags explicitly set on fs. Flag names are the keys with
// underscores written as dashes.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range []string{"keywords", "school", "class", "proxy_base", "user_agents", "proxies_file", "store"} {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Keywords = splitList(cfg.Keywords)
	cfg.UserAgents = splitList(cfg.UserAgents)
	return &cfg, nil
}

// splitList flattens comma separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks ranges and enumerations. Required inputs depend on the
// command and are checked with Require.
func (c *Config) Validate() error {
	var errs []error
	if c.SearchResults <= 0 {
		errs = append(errs, fmt.Errorf("%w: search_results must be positive, got %d", ErrInvalid, c.SearchResults))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalid, c.Limit))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalid, c.Concurrency))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalid))
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		errs = append(errs, fmt.Errorf("%w: jitter must be within [0, 1], got %v", ErrInvalid, c.Jitter))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive", ErrInvalid))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("%w: metrics_port out of range: %d", ErrInvalid, c.MetricsPort))
	}
	if !formats[c.Format] {
		errs = append(errs, fmt.Errorf("%w: unknown format %q", ErrInvalid, c.Format))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%w: unknown log_format %q", ErrInvalid, c.LogFormat))
	}
	if c.DomainMarker == "" {
		errs = append(errs, fmt.Errorf("%w: domain_marker is empty", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Require reports an error for each named setting that is empty.
func (c *Config) Require(keys ...string) error {
	var errs []error
	for _, k := range keys {
		empty := false
		switch k {
		case "keywords":
			empty = len(c.Keywords) == 0
		case "school":
			empty = strings.TrimSpace(c.School) == ""
		case "class":
			empty = strings.TrimSpace(c.Class) == ""
		case "store":
			empty = c.Store == ""
		default:
			return fmt.Errorf("%w: unknown required setting %q", ErrInvalid, k)
		}
		if empty {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalid, k))
		}
	}
	return errors.Join(errs...)
}
