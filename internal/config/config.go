package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Home      HomeConfig
	Loading   LoadingConfig
	BuildLog  BuildLogConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// HomeConfig locates the persistence root.
type HomeConfig struct {
	Dir           string `envconfig:"CI_HOME" default:"./ci-home"`
	ItemsDir      string `envconfig:"CI_ITEMS_DIR" default:"jobs"`
	CreateMissing bool   `envconfig:"CI_CREATE_MISSING" default:"true"`
}

// LoadingConfig controls loader passes.
type LoadingConfig struct {
	CollisionPolicy  string   `envconfig:"CI_COLLISION_POLICY" default:"reject"`
	HydrationPolicy  string   `envconfig:"CI_HYDRATION_POLICY" default:"skip"`
	HydrationWorkers int      `envconfig:"CI_HYDRATION_WORKERS" default:"8"`
	Exclude          []string `envconfig:"CI_LOADER_EXCLUDE" default:".*"`
}

// BuildLogConfig controls per-build log sinks.
type BuildLogConfig struct {
	DrainTimeout  time.Duration `envconfig:"CI_LOG_DRAIN_TIMEOUT" default:"5s"`
	Compress      bool          `envconfig:"CI_LOG_COMPRESS" default:"false"`
	BufferSize    int           `envconfig:"CI_LOG_BUFFER_SIZE" default:"32768"`
	StreamBytesPS int           `envconfig:"CI_LOG_STREAM_BPS" default:"0"`

	// Collector is the host:port of a remote log collector. When set,
	// builds stream their log there instead of writing a file.
	Collector         string        `envconfig:"CI_LOG_COLLECTOR" default:""`
	CollectorTimeout  time.Duration `envconfig:"CI_LOG_COLLECTOR_TIMEOUT" default:"5s"`
	CollectorTrip     uint32        `envconfig:"CI_LOG_COLLECTOR_TRIP" default:"3"`
	CollectorCooldown time.Duration `envconfig:"CI_LOG_COLLECTOR_COOLDOWN" default:"30s"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// GlobalRequestsPerSecond caps all clients together; 0 disables it.
	GlobalRequestsPerSecond int `envconfig:"RATE_LIMIT_GLOBAL_RPS" default:"0"`
}

var (
	collisionPolicies = []string{"reject", "first-wins", "last-wins"}
	hydrationPolicies = []string{"abort", "skip"}
)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Home: HomeConfig{
			Dir:           "./ci-home",
			ItemsDir:      "jobs",
			CreateMissing: true,
		},
		Loading: LoadingConfig{
			CollisionPolicy:  "reject",
			HydrationPolicy:  "skip",
			HydrationWorkers: 8,
			Exclude:          []string{".*"},
		},
		BuildLog: BuildLogConfig{
			DrainTimeout:      5 * time.Second,
			BufferSize:        32768,
			CollectorTimeout:  5 * time.Second,
			CollectorTrip:     3,
			CollectorCooldown: 30 * time.Second,
		},
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Home.Dir) == "" {
		errs = append(errs, errors.New("CI_HOME must not be empty"))
	}
	if c.Home.ItemsDir == "" || strings.ContainsAny(c.Home.ItemsDir, `/\`) {
		errs = append(errs, fmt.Errorf("CI_ITEMS_DIR %q must be a single directory name", c.Home.ItemsDir))
	}
	if !oneOf(c.Loading.CollisionPolicy, collisionPolicies) {
		errs = append(errs, fmt.Errorf("CI_COLLISION_POLICY %q must be one of %s",
			c.Loading.CollisionPolicy, strings.Join(collisionPolicies, ", ")))
	}
	if !oneOf(c.Loading.HydrationPolicy, hydrationPolicies) {
		errs = append(errs, fmt.Errorf("CI_HYDRATION_POLICY %q must be one of %s",
			c.Loading.HydrationPolicy, strings.Join(hydrationPolicies, ", ")))
	}
	if c.Loading.HydrationWorkers < 1 {
		errs = append(errs, fmt.Errorf("CI_HYDRATION_WORKERS must be positive, got %d", c.Loading.HydrationWorkers))
	}
	for _, pattern := range c.Loading.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("CI_LOADER_EXCLUDE pattern %q is invalid", pattern))
		}
	}
	if c.BuildLog.DrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CI_LOG_DRAIN_TIMEOUT must be positive, got %s", c.BuildLog.DrainTimeout))
	}
	if c.BuildLog.BufferSize < 0 || c.BuildLog.StreamBytesPS < 0 {
		errs = append(errs, errors.New("CI_LOG_BUFFER_SIZE and CI_LOG_STREAM_BPS must not be negative"))
	}
	if c.BuildLog.Collector != "" {
		if _, _, err := net.SplitHostPort(c.BuildLog.Collector); err != nil {
			errs = append(errs, fmt.Errorf("CI_LOG_COLLECTOR %q must be host:port: %w", c.BuildLog.Collector, err))
		}
		if c.BuildLog.CollectorTimeout <= 0 || c.BuildLog.CollectorCooldown <= 0 || c.BuildLog.CollectorTrip == 0 {
			errs = append(errs, errors.New("CI_LOG_COLLECTOR_TIMEOUT, CI_LOG_COLLECTOR_COOLDOWN and CI_LOG_COLLECTOR_TRIP must be positive"))
		}
	}
	if c.RateLimit.GlobalRequestsPerSecond < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GLOBAL_RPS must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
