// Package config loads application configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "CREDAUDIT_"

// Config holds the application configuration.
type Config struct {
	HIBP    HIBP    `envPrefix:"HIBP_" yaml:"hibp"`
	Batch   Batch   `envPrefix:"BATCH_" yaml:"batch"`
	Scoring Scoring `envPrefix:"SCORING_" yaml:"scoring"`

	DBPath     string `env:"DB_PATH" yaml:"db_path"`
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`
	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level"`

	// ConfigFile is the YAML file applied between defaults and env, read from
	// CREDAUDIT_CONFIG when not passed explicitly.
	ConfigFile string `yaml:"-"`
}

// HIBP configures the breach lookup client.
type HIBP struct {
	APIKey         string        `env:"API_KEY" yaml:"api_key"`
	UserAgent      string        `env:"USER_AGENT" yaml:"user_agent"`
	BaseURL        string        `env:"BASE_URL" yaml:"base_url"`
	Timeout        time.Duration `env:"TIMEOUT" yaml:"timeout"`
	MaxRetries     int           `env:"MAX_RETRIES" yaml:"max_retries"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" yaml:"retry_base_delay"`
	DisableCache   bool          `env:"DISABLE_CACHE" yaml:"disable_cache"`
}

// Batch configures the rate-limited batch scheduler.
type Batch struct {
	RequestsPerMinute    int           `env:"REQUESTS_PER_MINUTE" yaml:"requests_per_minute"`
	Size                 int           `env:"SIZE" yaml:"size"`
	DelayBetweenRequests time.Duration `env:"DELAY_BETWEEN_REQUESTS" yaml:"delay_between_requests"`
	DelayBetweenBatches  time.Duration `env:"DELAY_BETWEEN_BATCHES" yaml:"delay_between_batches"`
	WatchInterval        time.Duration `env:"WATCH_INTERVAL" yaml:"watch_interval"`
}

// Scoring holds the risk scoring weights.
type Scoring struct {
	Compromised int           `env:"COMPROMISED" yaml:"compromised"`
	PerBreach   int           `env:"PER_BREACH" yaml:"per_breach"`
	BreachCap   int           `env:"BREACH_CAP" yaml:"breach_cap"`
	Critical    int           `env:"CRITICAL" yaml:"critical"`
	Stale       int           `env:"STALE" yaml:"stale"`
	Weak        int           `env:"WEAK" yaml:"weak"`
	Duplicate   int           `env:"DUPLICATE" yaml:"duplicate"`
	StaleAfter  time.Duration `env:"STALE_AFTER" yaml:"stale_after"`
}

// HasAPIKey reports whether breach lookups can be performed.
func (c *Config) HasAPIKey() bool {
	return c.HIBP.APIKey != ""
}

// Defaults returns the built-in configuration. The batch defaults keep 20%
// headroom under a 10 requests-per-minute plan.
func Defaults() *Config {
	return &Config{
		HIBP: HIBP{
			UserAgent:      "credaudit",
			BaseURL:        "https://haveibeenpwned.com/api/v3",
			Timeout:        15 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
		},
		Batch: Batch{
			RequestsPerMinute:    8,
			Size:                 8,
			DelayBetweenRequests: 7 * time.Second,
			DelayBetweenBatches:  15 * time.Second,
			WatchInterval:        time.Hour,
		},
		Scoring: Scoring{
			Compromised: 50,
			PerBreach:   10,
			BreachCap:   50,
			Critical:    30,
			Stale:       15,
			Weak:        20,
			Duplicate:   15,
			StaleAfter:  365 * 24 * time.Hour,
		},
		DBPath:     "credaudit.db",
		ListenAddr: "127.0.0.1:8080",
		LogLevel:   "info",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CREDAUDIT_CONFIG (or configFile when non-empty), and CREDAUDIT_ environment
// variables. A missing API key is not an error here.
func Load(configFile string) (*Config, error) {
	return LoadWithFlags(configFile, nil)
}

// LoadWithFlags is Load followed by command-line overrides. Only non-zero
// fields of flags apply, since an unset flag is indistinguishable from its
// zero value.
func LoadWithFlags(configFile string, flags *Config) (*Config, error) {
	return newBuilder().
		withFile(configFile).
		withEnv().
		withFlags(flags).
		build()
}

// builder layers each source directly onto the defaults. The YAML decoder
// and env parser only touch keys that are present, so an explicit zero in a
// file or variable overrides a non-zero default.
type builder struct {
	cfg *Config
	err error
}

func newBuilder() *builder {
	return &builder{cfg: Defaults()}
}

func (b *builder) withFile(path string) *builder {
	if b.err != nil {
		return b
	}
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path == "" {
		return b
	}

	data, err := os.ReadFile(path)
	if err != nil {
		b.err = fmt.Errorf("read config file %q: %w", path, err)
		return b
	}
	if err := yaml.Unmarshal(data, b.cfg); err != nil {
		b.err = fmt.Errorf("parse config file %q: %w", path, err)
		return b
	}
	b.cfg.ConfigFile = path
	return b
}

func (b *builder) withEnv() *builder {
	if b.err != nil {
		return b
	}
	if err := env.ParseWithOptions(b.cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		b.err = fmt.Errorf("parse environment: %w", err)
	}
	return b
}

func (b *builder) withFlags(flags *Config) *builder {
	if b.err != nil || flags == nil {
		return b
	}
	if err := mergo.Merge(b.cfg, flags, mergo.WithOverride); err != nil {
		b.err = fmt.Errorf("apply flags: %w", err)
	}
	return b
}

func (b *builder) build() (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("load config: %w", b.err)
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return b.cfg, nil
}
