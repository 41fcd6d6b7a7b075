// Package config loads and validates the creditd YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete creditd configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Engine    EngineConfig              `yaml:"engine"`
	Audit     AuditConfig               `yaml:"audit"`
	Snapshot  SnapshotConfig            `yaml:"snapshot"`
	LogLevel  string                    `yaml:"log_level"`
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout_secs"`
	WriteTimeout int    `yaml:"write_timeout_secs"`
	IdleTimeout  int    `yaml:"idle_timeout_secs"`
}

// ProviderConfig holds per-upstream settings. Keys: base_score, wash_trade.
type ProviderConfig struct {
	BaseURL          string  `yaml:"base_url"`
	TimeoutMS        int     `yaml:"timeout_ms"`        // per-request timeout
	RPS              float64 `yaml:"rps"`               // rate limit; 0 disables
	Burst            int     `yaml:"burst"`             // rate limit burst
	FailureThreshold uint32  `yaml:"failure_threshold"` // breaker trip count
	OpenTimeoutSecs  int     `yaml:"open_timeout_secs"` // breaker recovery wait
}

// EngineConfig holds the fusion parameters.
type EngineConfig struct {
	BaseRate     float64 `yaml:"base_rate"`     // base interest rate, percent
	DefaultToken string  `yaml:"default_token"` // token when caller omits one
	Tolerance    float64 `yaml:"tolerance"`     // invariant float tolerance
}

// AuditConfig holds the optional Postgres decision log settings. An empty
// DSN disables auditing.
type AuditConfig struct {
	DSN string `yaml:"dsn"`
}

// SnapshotConfig holds the optional Redis snapshot store settings. An empty
// address disables snapshots.
type SnapshotConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8090,
			ReadTimeout:  10,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Providers: map[string]ProviderConfig{
			"base_score": {
				BaseURL:          "http://localhost:8000/api",
				TimeoutMS:        10000,
				RPS:              10,
				Burst:            5,
				FailureThreshold: 5,
				OpenTimeoutSecs:  30,
			},
			"wash_trade": {
				BaseURL:          "http://localhost:5001/api",
				TimeoutMS:        10000,
				RPS:              10,
				Burst:            5,
				FailureThreshold: 5,
				OpenTimeoutSecs:  30,
			},
		},
		Engine: EngineConfig{
			BaseRate:     5.0,
			DefaultToken: "LINK",
			Tolerance:    0.01,
		},
		Snapshot: SnapshotConfig{
			TTLSecs: 300,
		},
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file, starting from the
// defaults so partial files work.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate ensures the configuration is consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	for _, name := range []string{"base_score", "wash_trade"} {
		provider, ok := c.Providers[name]
		if !ok {
			return fmt.Errorf("provider %s not configured", name)
		}
		if provider.BaseURL == "" {
			return fmt.Errorf("provider %s: base_url is required", name)
		}
		if provider.TimeoutMS <= 0 {
			return fmt.Errorf("provider %s: timeout_ms must be positive, got %d", name, provider.TimeoutMS)
		}
		if provider.RPS < 0 {
			return fmt.Errorf("provider %s: rps cannot be negative, got %f", name, provider.RPS)
		}
	}

	if c.Engine.BaseRate < 0 {
		return fmt.Errorf("engine base_rate cannot be negative, got %f", c.Engine.BaseRate)
	}
	if c.Engine.DefaultToken == "" {
		return fmt.Errorf("engine default_token is required")
	}
	if c.Engine.Tolerance <= 0 {
		return fmt.Errorf("engine tolerance must be positive, got %f", c.Engine.Tolerance)
	}

	if c.Snapshot.RedisAddr != "" && c.Snapshot.TTLSecs <= 0 {
		return fmt.Errorf("snapshot ttl_secs must be positive when redis is enabled")
	}

	return nil
}

// Timeout returns the provider request timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// OpenTimeout returns the breaker recovery wait as a duration.
func (p ProviderConfig) OpenTimeout() time.Duration {
	return time.Duration(p.OpenTimeoutSecs) * time.Second
}

// SnapshotTTL returns the snapshot expiry as a duration.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Snapshot.TTLSecs) * time.Second
}
