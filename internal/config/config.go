// Package config provides configuration loading for vibecope.
//
// Values come from built-in defaults, then an optional YAML file, then
// VIBECOPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds the complete vibecope configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Settings  SettingsConfig  `koanf:"settings"`
	Locales   LocalesConfig   `koanf:"locales"`
	Model     ModelConfig     `koanf:"model"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"` // scoring requests per second per client, 0 disables
	RateBurst       int      `koanf:"rate_burst"`
	MaxTextBytes    ByteSize `koanf:"max_text_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SettingsConfig locates the persisted user settings.
type SettingsConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// LocalesConfig configures extra locale tables.
type LocalesConfig struct {
	Dir string `koanf:"dir"`
}

// ModelConfig locates the classifier assets. Both paths empty means the
// heuristic scorer is always used.
type ModelConfig struct {
	VocabularyPath string `koanf:"vocabulary_path"`
	WeightsPath    string `koanf:"weights_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LoggingConfig holds the user-facing logging knobs.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// TelemetryConfig controls OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"` // grpc or http/protobuf
	Insecure       bool     `koanf:"insecure"`
	TLSSkipVerify  bool     `koanf:"tls_skip_verify"`
	SamplingRate   float64  `koanf:"sampling_rate"`
	ExportInterval Duration `koanf:"export_interval"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be >= 1 when rate limiting, got %d", c.Server.RateBurst)
	}
	if c.Server.MaxTextBytes < 1 {
		return fmt.Errorf("max text bytes must be positive, got %d", c.Server.MaxTextBytes)
	}

	if (c.Model.VocabularyPath == "") != (c.Model.WeightsPath == "") {
		return errors.New("model vocabulary_path and weights_path must be set together")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	switch c.Telemetry.Protocol {
	case "", "grpc", "http/protobuf":
	default:
		return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
	}

	return nil
}
