package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// YTSEARCH_SEARCH_NAVIGATION_TIMEOUT=30s.
const EnvPrefix = "YTSEARCH"

// QueryPlaceholder marks where the encoded search term goes in URLTemplate.
const QueryPlaceholder = "{query}"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host"` // default: "0.0.0.0"
	Port int    `mapstructure:"port"` // default: 8080, PORT is honoured
	Mode string `mapstructure:"mode"` // "debug", "release", "test"; default: "release"

	// StaticDir holds index.html for the landing page.
	StaticDir string `mapstructure:"static_dir"` // default: "static"

	// CompressMinBytes is the smallest body that gets compressed.
	CompressMinBytes int `mapstructure:"compress_min_bytes"` // default: 1024

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // default: 5s
}

// BrowserConfig controls the shared Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `mapstructure:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in containers).
	NoSandbox bool `mapstructure:"no_sandbox"` // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `mapstructure:"bin"`

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string `mapstructure:"proxy"`

	// Stealth injects go-rod/stealth evasions into every page.
	Stealth bool `mapstructure:"stealth"` // default: true

	// Incognito gives every page its own browser context.
	Incognito bool `mapstructure:"incognito"` // default: true

	// HealthInterval is how often the liveness watcher probes the browser.
	// Zero disables the watcher.
	HealthInterval time.Duration `mapstructure:"health_interval"` // default: 10s

	// ExitOnLoss stops the service when the browser is lost so that the
	// process supervisor restarts it.
	ExitOnLoss bool `mapstructure:"exit_on_loss"` // default: false
}

// SearchConfig describes the target site and the extraction pipeline bounds.
type SearchConfig struct {
	URLTemplate string `mapstructure:"url_template"`
	Selector    string `mapstructure:"selector"`   // default: "#video-title"
	Attribute   string `mapstructure:"attribute"`  // default: "href"
	Delimiter   string `mapstructure:"delimiter"`  // default: "v="
	Separators  string `mapstructure:"separators"` // default: "&#"

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"` // default: 60s
	SelectorTimeout   time.Duration `mapstructure:"selector_timeout"`   // default: 60s
	EvalTimeout       time.Duration `mapstructure:"eval_timeout"`       // default: 10s

	// MaxConcurrent caps simultaneously open pages; 0 means unbounded.
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"` // default: 30s

	MaxTermLength int `mapstructure:"max_term_length"` // default: 500
}

// CacheConfig controls the optional search result cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`     // default: false
	Backend    string        `mapstructure:"backend"`     // "memory" or "sqlite"; default: "memory"
	Path       string        `mapstructure:"path"`        // sqlite file; default: "ytsearch-cache.db"
	TTL        time.Duration `mapstructure:"ttl"`         // default: 24h
	MaxEntries int           `mapstructure:"max_entries"` // memory backend only; default: 1000
}

// AuthConfig controls API key authentication on /search.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"` // default: false
	APIKeys []string `mapstructure:"api_keys"`
}

// RateLimitConfig controls per-client rate limiting on /search.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`             // default: false
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // default: 5
	Burst             int     `mapstructure:"burst"`               // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // default: "info"
	Format string `mapstructure:"format"` // "json" or "text"; default: "json"

	// File enables a rotated JSON log file next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // default: 100
	MaxBackups int    `mapstructure:"max_backups"`  // default: 5
	MaxAgeDays int    `mapstructure:"max_age_days"` // default: 30
	Compress   bool   `mapstructure:"compress"`     // default: true
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"` // default: true
	Path    string `mapstructure:"path"`    // default: "/metrics"
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // default: false
	ServiceName string `mapstructure:"service_name"` // default: "ytsearch"
	// File receives exported spans; empty means stderr, keeping stdout for logs.
	File string `mapstructure:"file"` // default: ""
}

// SetDefaults registers every known key with its default value. Keys that
// are not registered here are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	// -- Server --
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.compress_min_bytes", 1024)
	v.SetDefault("server.shutdown_timeout", "5s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.incognito", true)
	v.SetDefault("browser.health_interval", "10s")
	v.SetDefault("browser.exit_on_loss", false)

	// -- Search --
	v.SetDefault("search.url_template", "https://www.youtube.com/results?search_query="+QueryPlaceholder)
	v.SetDefault("search.selector", "#video-title")
	v.SetDefault("search.attribute", "href")
	v.SetDefault("search.delimiter", "v=")
	v.SetDefault("search.separators", "&#")
	v.SetDefault("search.navigation_timeout", "60s")
	v.SetDefault("search.selector_timeout", "60s")
	v.SetDefault("search.eval_timeout", "10s")
	v.SetDefault("search.max_concurrent", 0)
	v.SetDefault("search.queue_timeout", "30s")
	v.SetDefault("search.max_term_length", 500)

	// -- Cache --
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.path", "ytsearch-cache.db")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 1000)

	// -- Auth / rate limit --
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)

	// -- Log --
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	// -- Observability --
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "ytsearch")
	v.SetDefault("tracing.file", "")
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"port":      "server.port",
	"host":      "server.host",
	"log-level": "log.level",
	"headless":  "browser.headless",
	"cache":     "cache.enabled",
}

// Load reads configuration from defaults, a .env file, the environment, an
// optional config file and optional command-line flags, in increasing order
// of precedence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is what most container platforms inject.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind PORT: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	s := c.Search
	if !strings.Contains(s.URLTemplate, QueryPlaceholder) {
		errs = append(errs, fmt.Errorf("search.url_template must contain %s", QueryPlaceholder))
	}
	if _, err := cascadia.Compile(s.Selector); err != nil {
		errs = append(errs, fmt.Errorf("search.selector %q is not a valid CSS selector: %w", s.Selector, err))
	}
	if s.Attribute == "" {
		errs = append(errs, errors.New("search.attribute must not be empty"))
	}
	if s.Delimiter == "" {
		errs = append(errs, errors.New("search.delimiter must not be empty"))
	}
	if s.NavigationTimeout <= 0 || s.SelectorTimeout <= 0 || s.EvalTimeout <= 0 {
		errs = append(errs, errors.New("search timeouts must be positive"))
	}
	if s.MaxConcurrent < 0 {
		errs = append(errs, errors.New("search.max_concurrent must not be negative"))
	}
	if s.MaxConcurrent > 0 && s.QueueTimeout <= 0 {
		errs = append(errs, errors.New("search.queue_timeout must be positive when max_concurrent is set"))
	}

	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory or sqlite, got %q", c.Cache.Backend))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth.api_keys must not be empty when auth is enabled"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit.requests_per_second and rate_limit.burst must be positive"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
