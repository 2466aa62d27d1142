// Package config provides loading and parsing of cpuinfo.yaml configuration files.
// The file configures where listings come from, how strictly they are parsed,
// and where the collector stores and publishes them.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/cpuinfo"
	"github.com/zero-day-ai/cpuinfo/health"
	"github.com/zero-day-ai/cpuinfo/registry"
	"github.com/zero-day-ai/cpuinfo/snapshot"
	"github.com/zero-day-ai/cpuinfo/source"
)

// File names searched for in a directory, in order.
var fileNames = []string{"cpuinfo.yaml", "cpuinfo.yml"}

// ErrNotFound is returned when a directory holds no configuration file.
var ErrNotFound = errors.New("config file not found")

const defaultSourceTimeout = 10 * time.Second

// Config represents a cpuinfo.yaml configuration file.
// Every section is optional.
type Config struct {
	// Host names this machine in snapshots and the registry.
	// Default: os.Hostname()
	Host string `yaml:"host,omitempty"`

	Source    *SourceConfig    `yaml:"source,omitempty"`
	Parser    *ParserConfig    `yaml:"parser,omitempty"`
	Collector *CollectorConfig `yaml:"collector,omitempty"`
	Redis     *RedisConfig     `yaml:"redis,omitempty"`
	Etcd      *EtcdConfig      `yaml:"etcd,omitempty"`
	Checks    *ChecksConfig    `yaml:"checks,omitempty"`
	Logging   *LoggingConfig   `yaml:"logging,omitempty"`
}

// SourceConfig selects where the listing is read from.
type SourceConfig struct {
	// Path is the listing file. Default: /proc/cpuinfo
	Path string `yaml:"path,omitempty"`

	// Command, when set, is run instead of reading Path.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	// Timeout bounds a read or command run.
	// Format: Go duration string (e.g., "5s")
	// Default: 10s
	Timeout string `yaml:"timeout,omitempty"`
}

// ParserConfig controls parsing.
type ParserConfig struct {
	// Strict rejects the blank line the kernel writes after the last record.
	Strict bool `yaml:"strict,omitempty"`
}

// CollectorConfig configures the periodic collector.
type CollectorConfig struct {
	// Interval between collections.
	// Format: Go duration string (e.g., "30s", "5m")
	// Default: 60s
	Interval string `yaml:"interval,omitempty"`

	// ListenAddr is the address of the gRPC health service.
	// Empty disables the service.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// RedisConfig configures the snapshot store. Empty URL disables it.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`

	// Prefix namespaces every key. Default: "cpuinfo"
	Prefix string `yaml:"prefix,omitempty"`

	// TTL expires a host's latest snapshot. Empty keeps it forever.
	TTL string `yaml:"ttl,omitempty"`

	// HistoryLimit is the number of past snapshots kept per host.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// ConnectTimeout bounds connection establishment. Default: 5s
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// EtcdConfig configures the inventory registry. No endpoints disables it.
type EtcdConfig struct {
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace is the etcd key prefix. Default: "cpuinfo"
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the lease time-to-live in seconds. Default: 30
	TTL int `yaml:"ttl,omitempty"`

	// DialTimeout bounds connection establishment. Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`

	TLS *registry.TLSConfig `yaml:"tls,omitempty"`
}

// ChecksConfig configures source health checks.
type ChecksConfig struct {
	// RequiredFlags must be present on every processor.
	RequiredFlags []string `yaml:"required_flags,omitempty"`

	// MinProcessors is the minimum number of records a healthy listing has.
	MinProcessors int `yaml:"min_processors,omitempty"`

	// SlowThreshold marks a source degraded when reading it takes longer.
	// Format: Go duration string. Empty disables the check.
	SlowThreshold string `yaml:"slow_threshold,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level,omitempty"`

	// Format is text or json. Default: text
	Format string `yaml:"format,omitempty"`
}

// parseDuration parses s, returning def when s is empty or invalid.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetHost returns the configured host or the machine's hostname.
func (c *Config) GetHost() string {
	if c != nil && c.Host != "" {
		return c.Host
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	return host
}

// GetTimeout returns the source timeout or the default value.
func (s *SourceConfig) GetTimeout() time.Duration {
	if s == nil {
		return defaultSourceTimeout
	}
	return parseDuration(s.Timeout, defaultSourceTimeout)
}

// SourceConfig returns the listing source described by c.
func (c *Config) SourceConfig() source.Config {
	if c == nil || c.Source == nil {
		return source.Config{Path: source.DefaultPath, Timeout: defaultSourceTimeout}
	}
	s := c.Source
	cfg := source.Config{
		Path:    s.Path,
		Command: s.Command,
		Args:    s.Args,
		Timeout: s.GetTimeout(),
	}
	if cfg.Path == "" && cfg.Command == "" {
		cfg.Path = source.DefaultPath
	}
	return cfg
}

// ParserOptions returns the parser options described by c.
func (c *Config) ParserOptions() []cpuinfo.Option {
	if c != nil && c.Parser != nil && c.Parser.Strict {
		return nil
	}
	return []cpuinfo.Option{cpuinfo.WithTrailingSeparator()}
}

// GetInterval returns the collection interval or the default value.
func (c *CollectorConfig) GetInterval() time.Duration {
	if c == nil {
		return 60 * time.Second
	}
	return parseDuration(c.Interval, 60*time.Second)
}

// GetListenAddr returns the health service address, or "" when disabled.
func (c *CollectorConfig) GetListenAddr() string {
	if c == nil {
		return ""
	}
	return c.ListenAddr
}

// Enabled reports whether a snapshot store is configured.
func (r *RedisConfig) Enabled() bool {
	return r != nil && r.URL != ""
}

// Options returns the snapshot store options described by r.
func (r *RedisConfig) Options() snapshot.RedisOptions {
	if r == nil {
		return snapshot.RedisOptions{}
	}
	return snapshot.RedisOptions{
		URL:            r.URL,
		Prefix:         r.Prefix,
		TTL:            parseDuration(r.TTL, 0),
		HistoryLimit:   r.HistoryLimit,
		ConnectTimeout: parseDuration(r.ConnectTimeout, 5*time.Second),
	}
}

// Enabled reports whether a registry is configured.
func (e *EtcdConfig) Enabled() bool {
	return e != nil && len(e.Endpoints) > 0
}

// RegistryConfig returns the registry configuration described by e.
func (e *EtcdConfig) RegistryConfig() registry.Config {
	if e == nil {
		return registry.Config{}
	}
	return registry.Config{
		Endpoints:   e.Endpoints,
		Namespace:   e.Namespace,
		TTL:         e.TTL,
		DialTimeout: parseDuration(e.DialTimeout, 5*time.Second),
		TLS:         e.TLS,
	}
}

// SourceOptions returns the health check options described by c, using p to
// parse listings.
func (c *ChecksConfig) SourceOptions(p *cpuinfo.Parser) health.SourceOptions {
	opts := health.SourceOptions{Parser: p}
	if c == nil {
		return opts
	}
	opts.RequiredFlags = c.RequiredFlags
	opts.MinProcessors = c.MinProcessors
	opts.SlowThreshold = parseDuration(c.SlowThreshold, 0)
	return opts
}

// GetLevel returns the configured log level or slog.LevelInfo.
func (l *LoggingConfig) GetLevel() slog.Level {
	if l == nil || l.Level == "" {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger returns a logger writing to w in the configured format.
func (l *LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.GetLevel()}
	if l != nil && strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Validate reports malformed values that the getters would otherwise replace
// with defaults.
func (c *Config) Validate() error {
	var errs []error

	checkDuration := func(field, value string) {
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", field))
		}
	}

	if c.Source != nil {
		checkDuration("source.timeout", c.Source.Timeout)
		if c.Source.Path != "" && c.Source.Command != "" {
			errs = append(errs, errors.New("source: path and command are mutually exclusive"))
		}
	}
	if c.Collector != nil {
		checkDuration("collector.interval", c.Collector.Interval)
		if c.Collector.Interval != "" && c.Collector.GetInterval() == 0 {
			errs = append(errs, errors.New("collector.interval: must be positive"))
		}
	}
	if c.Redis != nil {
		checkDuration("redis.ttl", c.Redis.TTL)
		checkDuration("redis.connect_timeout", c.Redis.ConnectTimeout)
		if c.Redis.HistoryLimit < 0 {
			errs = append(errs, errors.New("redis.history_limit: must not be negative"))
		}
	}
	if c.Etcd != nil {
		checkDuration("etcd.dial_timeout", c.Etcd.DialTimeout)
		if c.Etcd.TTL < 0 {
			errs = append(errs, errors.New("etcd.ttl: must not be negative"))
		}
	}
	if c.Checks != nil {
		checkDuration("checks.slow_threshold", c.Checks.SlowThreshold)
		if c.Checks.MinProcessors < 0 {
			errs = append(errs, errors.New("checks.min_processors: must not be negative"))
		}
	}
	if c.Logging != nil {
		if c.Logging.Level != "" {
			var level slog.Level
			if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
				errs = append(errs, fmt.Errorf("logging.level: %w", err))
			}
		}
		switch strings.ToLower(c.Logging.Format) {
		case "", "text", "json":
		default:
			errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
		}
	}

	return errors.Join(errs...)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// Load reads and parses a cpuinfo.yaml file from the given path.
// If the path is a directory, it looks for cpuinfo.yaml or cpuinfo.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range fileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("%w: no cpuinfo.yaml or cpuinfo.yml in %s", ErrNotFound, path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadFromDir searches for cpuinfo.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("%w: no cpuinfo.yaml in %s or parent directories", ErrNotFound, dir)
		}
		absDir = parent
	}
}
