package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
)

// Default locations for persistent checkpoint stores.
const (
	DefaultFileCheckpointPath   = ".flowgraph/checkpoints"
	DefaultSQLiteCheckpointPath = ".flowgraph/checkpoints.db"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

func (c *ServerConfig) Merge(source *ServerConfig) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.ReadTimeout > 0 {
		c.ReadTimeout = source.ReadTimeout
	}
	if source.WriteTimeout > 0 {
		c.WriteTimeout = source.WriteTimeout
	}
	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}

// MetricsConfig enables the OpenTelemetry metrics observer and its
// Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

func (c *MetricsConfig) Merge(source *MetricsConfig) {
	if source.Enabled {
		c.Enabled = true
	}
}

// TracingConfig enables span export for graph runs and HTTP requests.
type TracingConfig struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Exporter     string  `json:"exporter" yaml:"exporter"`
	ServiceName  string  `json:"service_name" yaml:"service_name"`
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate"`
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Exporter:     "stdout",
		ServiceName:  "flowgraph",
		SamplingRate: 1.0,
	}
}

func (c *TracingConfig) Merge(source *TracingConfig) {
	if source.Enabled {
		c.Enabled = true
	}
	if source.Exporter != "" {
		c.Exporter = source.Exporter
	}
	if source.ServiceName != "" {
		c.ServiceName = source.ServiceName
	}
	if source.SamplingRate > 0 {
		c.SamplingRate = source.SamplingRate
	}
}

// Config holds initialization parameters for every pipeline subsystem.
type Config struct {
	Graph   config.GraphConfig `json:"graph" yaml:"graph"`
	Content content.Config     `json:"content" yaml:"content"`
	Batch   config.BatchConfig `json:"batch" yaml:"batch"`
	Server  ServerConfig       `json:"server" yaml:"server"`
	Metrics MetricsConfig      `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig      `json:"tracing" yaml:"tracing"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Graph:   config.DefaultGraphConfig(content.DefaultGraphName),
		Content: content.DefaultConfig(),
		Batch:   config.DefaultBatchConfig(),
		Server:  DefaultServerConfig(),
		Tracing: DefaultTracingConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Graph.Merge(&source.Graph)
	c.Content.Merge(&source.Content)
	c.Batch.Merge(&source.Batch)
	c.Server.Merge(&source.Server)
	c.Metrics.Merge(&source.Metrics)
	c.Tracing.Merge(&source.Tracing)
}

// LoadConfig reads a YAML (or JSON) config file, expands ${VAR} and
// ${VAR:-default} references, merges it with defaults and returns the
// result. .env files next to the config file and in the working directory
// are loaded first; variables already set are not overwritten.
func LoadConfig(filename string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(filename), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory data. It does not load .env
// files.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	var loaded Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
