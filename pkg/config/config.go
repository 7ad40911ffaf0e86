package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pario-ai/fastroute/pkg/models"
	"gopkg.in/yaml.v3"
)

// Cache strategies.
const (
	StrategyAggressive   = "aggressive"
	StrategyBalanced     = "balanced"
	StrategyConservative = "conservative"
)

// Backend kinds.
const (
	KindHTTP      = "http"
	KindSimulated = "simulated"
)

// Config holds all fastroute configuration.
type Config struct {
	Listen   string          `yaml:"listen"`
	DBPath   string          `yaml:"db_path"`
	LogLevel string          `yaml:"log_level"`
	Router   RouterConfig    `yaml:"router"`
	Backends []BackendConfig `yaml:"backends"`
	Patterns []PatternConfig `yaml:"patterns"`
	Journal  JournalConfig   `yaml:"journal"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// RouterConfig is the static routing configuration fixed at construction.
type RouterConfig struct {
	CacheStrategy         string        `yaml:"cache_strategy" json:"cache_strategy"`
	MaxResponseTime       time.Duration `yaml:"max_response_time" json:"max_response_time"`
	ParallelProcessing    bool          `yaml:"parallel_processing" json:"parallel_processing"`
	CircuitBreakerEnabled bool          `yaml:"circuit_breaker_enabled" json:"circuit_breaker_enabled"`
	PredictiveRouting     bool          `yaml:"predictive_routing" json:"predictive_routing"`
	AnalysisTimeout       time.Duration `yaml:"analysis_timeout" json:"analysis_timeout"`
	RetryTimeout          time.Duration `yaml:"retry_timeout" json:"retry_timeout"`
	HalfOpenAfter         time.Duration `yaml:"half_open_after" json:"half_open_after"`
	CacheCapacity         int           `yaml:"cache_capacity" json:"cache_capacity"`
	MemoSize              int           `yaml:"memo_size" json:"memo_size"`
}

// BackendConfig defines one answer-generation backend.
// Kind is "http" (default) or "simulated".
type BackendConfig struct {
	ID          models.BackendID `yaml:"id"`
	Kind        string           `yaml:"kind"`
	URL         string           `yaml:"url"`
	APIKey      string           `yaml:"api_key"`
	Latency     time.Duration    `yaml:"latency"`
	FailureRate float64          `yaml:"failure_rate"`
}

// PatternConfig is one shortcut rule. Rules are evaluated in file order.
type PatternConfig struct {
	Expr        string           `yaml:"expr"`
	Backend     models.BackendID `yaml:"backend"`
	Confidence  float64          `yaml:"confidence"`
	EstimatedMs float64          `yaml:"estimated_ms"`
	Reasoning   string           `yaml:"reasoning"`
}

// JournalConfig controls the SQLite route journal.
type JournalConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultRouter returns the router settings used when none are configured.
func DefaultRouter() RouterConfig {
	return RouterConfig{
		CacheStrategy:         StrategyAggressive,
		MaxResponseTime:       150 * time.Millisecond,
		ParallelProcessing:    true,
		CircuitBreakerEnabled: true,
		PredictiveRouting:     true,
		AnalysisTimeout:       15 * time.Millisecond,
		RetryTimeout:          50 * time.Millisecond,
		HalfOpenAfter:         30 * time.Second,
		CacheCapacity:         1000,
		MemoSize:              512,
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "fastroute.db",
		LogLevel: "info",
		Router:   DefaultRouter(),
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 7,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the routing values the router cannot recover from at runtime.
func (rc RouterConfig) Validate() error {
	switch rc.CacheStrategy {
	case StrategyAggressive, StrategyBalanced, StrategyConservative:
	default:
		return fmt.Errorf("invalid cache_strategy %q", rc.CacheStrategy)
	}
	if rc.MaxResponseTime <= 0 {
		return fmt.Errorf("max_response_time must be positive")
	}
	if rc.AnalysisTimeout <= 0 || rc.RetryTimeout <= 0 {
		return fmt.Errorf("analysis_timeout and retry_timeout must be positive")
	}
	if rc.HalfOpenAfter < 0 {
		return fmt.Errorf("half_open_after must not be negative")
	}
	if rc.CacheCapacity < 2 {
		return fmt.Errorf("cache_capacity must be at least 2")
	}
	return nil
}

// Validate checks the values that the router cannot recover from at runtime.
func (c *Config) Validate() error {
	if err := c.Router.Validate(); err != nil {
		return err
	}

	seen := make(map[models.BackendID]bool, len(c.Backends))
	for _, b := range c.Backends {
		if !b.ID.Routable() {
			return fmt.Errorf("backend %q: unknown id", b.ID)
		}
		if seen[b.ID] {
			return fmt.Errorf("backend %q: configured twice", b.ID)
		}
		seen[b.ID] = true
		switch b.Kind {
		case "", KindHTTP:
			if b.URL == "" {
				return fmt.Errorf("backend %q: url is required", b.ID)
			}
		case KindSimulated:
		default:
			return fmt.Errorf("backend %q: unknown kind %q", b.ID, b.Kind)
		}
	}

	for i, p := range c.Patterns {
		if p.Expr == "" {
			return fmt.Errorf("pattern %d: expr is required", i)
		}
		if !p.Backend.Routable() {
			return fmt.Errorf("pattern %d: unknown backend %q", i, p.Backend)
		}
	}
	return nil
}
