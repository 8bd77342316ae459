// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/logrelay/logrelay/pkg/errors"
)

// Config holds all LogRelay configuration.
type Config struct {
	Version int `yaml:"version"`

	Queue      QueueConfig      `yaml:"queue"`
	Batch      BatchConfig      `yaml:"batch"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Cache      CacheConfig      `yaml:"cache"`
	Sinks      []SinkConfig     `yaml:"sinks"`
	Processors ProcessorsConfig `yaml:"processors"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// QueueConfig controls the bounded event queue.
type QueueConfig struct {
	Capacity     int     `yaml:"capacity"`
	Policy       string  `yaml:"policy"` // drop | block | sample
	SamplingRate float64 `yaml:"sampling_rate"`
}

// BatchConfig controls flush triggers.
type BatchConfig struct {
	Size     int           `yaml:"size"`
	Interval time.Duration `yaml:"interval"`
}

// BreakerConfig controls the per-sink circuit breakers.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// CacheConfig controls the enricher cache and the rate tracker.
type CacheConfig struct {
	MaxSize  int           `yaml:"max_size"`
	TTL      time.Duration `yaml:"ttl"`
	RateKeys int           `yaml:"rate_keys"`
}

// SinkConfig declares one destination. Type selects the implementation;
// only the matching fields are read.
type SinkConfig struct {
	Type string `yaml:"type"` // console | file | redis | duckdb | s3 | webhook
	Name string `yaml:"name"`

	// file, duckdb
	Path string `yaml:"path"`

	// redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`

	// s3
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// webhook
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// ProcessorsConfig declares the pre-enqueue processor chain.
type ProcessorsConfig struct {
	RedactKeys []string          `yaml:"redact_keys"`
	RenameKeys map[string]string `yaml:"rename_keys"`
	SampleRate float64           `yaml:"sample_rate"` // 0 disables

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Filters   []FilterConfig  `yaml:"filters"`
}

// RateLimitConfig caps events per key over a sliding window.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	KeyField string        `yaml:"key_field"`
	Limit    int           `yaml:"limit"`
	Window   time.Duration `yaml:"window"`
}

// FilterConfig declares one keep/drop condition on event JSON.
type FilterConfig struct {
	Path   string `yaml:"path"`
	Op     string `yaml:"op"` // equals | contains | regex
	Value  string `yaml:"value"`
	Action string `yaml:"action"` // keep | drop
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Queue: QueueConfig{
			Capacity:     1024,
			Policy:       "drop",
			SamplingRate: 1.0,
		},
		Batch: BatchConfig{
			Size:     100,
			Interval: time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize:  1000,
			TTL:      5 * time.Minute,
			RateKeys: 1000,
		},
		Sinks: []SinkConfig{
			{Type: "console", Name: "console"},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "logrelay",
		},
	}
}

// Validate checks the configuration for constraint violations.
func (c *Config) Validate() error {
	if c.Queue.Capacity < 1 {
		return errors.Config("queue.capacity", "must be >= 1")
	}
	switch c.Queue.Policy {
	case "drop", "block", "sample":
	default:
		return errors.Config("queue.policy", "must be one of drop, block, sample")
	}
	if c.Queue.SamplingRate < 0 || c.Queue.SamplingRate > 1 {
		return errors.Config("queue.sampling_rate", "must be within [0,1]")
	}
	if c.Batch.Size < 1 {
		return errors.Config("batch.size", "must be >= 1")
	}
	if c.Batch.Interval <= 0 {
		return errors.Config("batch.interval", "must be > 0")
	}
	if c.Breaker.FailureThreshold < 1 {
		return errors.Config("breaker.failure_threshold", "must be >= 1")
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		return errors.Config("breaker.recovery_timeout", "must be > 0")
	}
	if c.Cache.MaxSize < 1 {
		return errors.Config("cache.max_size", "must be >= 1")
	}
	if c.Cache.TTL <= 0 {
		return errors.Config("cache.ttl", "must be > 0")
	}
	if len(c.Sinks) == 0 {
		return errors.Config("sinks", "at least one sink required")
	}
	for i, s := range c.Sinks {
		if err := s.validate(); err != nil {
			return errors.Wrapf(err, errors.CodeConfig, "sinks[%d]", i)
		}
	}
	return nil
}

func (s SinkConfig) validate() error {
	switch s.Type {
	case "console":
	case "file":
		if s.Path == "" {
			return errors.Config("path", "required for file sink")
		}
	case "redis":
		if s.Addr == "" {
			return errors.Config("addr", "required for redis sink")
		}
	case "duckdb":
		if s.Path == "" {
			return errors.Config("path", "required for duckdb sink")
		}
	case "s3":
		if s.Bucket == "" {
			return errors.Config("bucket", "required for s3 sink")
		}
	case "webhook":
		if s.URL == "" {
			return errors.Config("url", "required for webhook sink")
		}
	default:
		return errors.Config("type", fmt.Sprintf("unknown sink type %q", s.Type))
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, but surface errors for existing files
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return m.config.Validate()
}

// LoadFile loads one explicit config file over the defaults.
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	if err := m.loadFile(path); err != nil {
		return err
	}
	m.paths = append(m.paths, path)
	m.loadEnv()
	return m.config.Validate()
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/logrelay/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".logrelay", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".logrelay.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return errors.Wrapf(err, errors.CodeConfig, "parse %s", path)
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Queue
	if src.Queue.Capacity != 0 {
		m.config.Queue.Capacity = src.Queue.Capacity
	}
	if src.Queue.Policy != "" {
		m.config.Queue.Policy = src.Queue.Policy
	}
	if src.Queue.SamplingRate != 0 {
		m.config.Queue.SamplingRate = src.Queue.SamplingRate
	}

	// Batch
	if src.Batch.Size != 0 {
		m.config.Batch.Size = src.Batch.Size
	}
	if src.Batch.Interval != 0 {
		m.config.Batch.Interval = src.Batch.Interval
	}

	// Breaker
	if src.Breaker.FailureThreshold != 0 {
		m.config.Breaker.FailureThreshold = src.Breaker.FailureThreshold
	}
	if src.Breaker.RecoveryTimeout != 0 {
		m.config.Breaker.RecoveryTimeout = src.Breaker.RecoveryTimeout
	}

	// Cache
	if src.Cache.MaxSize != 0 {
		m.config.Cache.MaxSize = src.Cache.MaxSize
	}
	if src.Cache.TTL != 0 {
		m.config.Cache.TTL = src.Cache.TTL
	}
	if src.Cache.RateKeys != 0 {
		m.config.Cache.RateKeys = src.Cache.RateKeys
	}

	// Sinks and processors replace wholesale; partial merges of a sink
	// list are ambiguous.
	if len(src.Sinks) > 0 {
		m.config.Sinks = src.Sinks
	}
	if len(src.Processors.RedactKeys) > 0 {
		m.config.Processors.RedactKeys = src.Processors.RedactKeys
	}
	if len(src.Processors.RenameKeys) > 0 {
		m.config.Processors.RenameKeys = src.Processors.RenameKeys
	}
	if src.Processors.SampleRate != 0 {
		m.config.Processors.SampleRate = src.Processors.SampleRate
	}
	if src.Processors.RateLimit.Enabled {
		m.config.Processors.RateLimit = src.Processors.RateLimit
	}
	if len(src.Processors.Filters) > 0 {
		m.config.Processors.Filters = src.Processors.Filters
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		m.config.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
	if src.Telemetry.Insecure {
		m.config.Telemetry.Insecure = true
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("LOGRELAY_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Queue.Capacity = n
		}
	}
	if v := os.Getenv("LOGRELAY_QUEUE_POLICY"); v != "" {
		m.config.Queue.Policy = v
	}
	if v := os.Getenv("LOGRELAY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Batch.Size = n
		}
	}
	if v := os.Getenv("LOGRELAY_BATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			m.config.Batch.Interval = d
		}
	}
	if v := os.Getenv("LOGRELAY_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".logrelay")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
