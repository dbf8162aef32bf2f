package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VIBECOPE_"

	appDir = "vibecope"
)

// defaultsYAML is loaded before the config file so that booleans defaulting to
// true survive an absent key.
const defaultsYAML = `
server:
  host: 127.0.0.1
  port: 8787
  shutdown_timeout: 10s
  rate_limit: 20
  rate_burst: 40
  max_text_bytes: 64KiB
settings:
  watch: true
metrics:
  enabled: true
  path: /metrics
logging:
  level: info
  format: json
telemetry:
  enabled: false
  endpoint: localhost:4317
  protocol: grpc
  insecure: true
  sampling_rate: 1.0
  export_interval: 15s
`

// LoadWithFile loads defaults, then the YAML file, then environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (VIBECOPE_SERVER_PORT, VIBECOPE_MODEL_WEIGHTS_PATH, ...)
//  2. YAML config file (~/.config/vibecope/config.yaml)
//  3. Built-in defaults
//
// An empty configPath selects the default path. A missing file is not an error.
//
// Only files under ~/.config/vibecope/ or /etc/vibecope/ are accepted. Existing
// files must have 0600 or 0400 permissions and be at most 1MB.
//
// Environment variables drop the prefix, are lowercased and split on the first
// underscore:
//
//	VIBECOPE_SERVER_PORT          -> server.port
//	VIBECOPE_SERVER_RATE_LIMIT    -> server.rate_limit
//	VIBECOPE_MODEL_WEIGHTS_PATH   -> model.weights_path
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultsYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		dir, err := UserConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps VIBECOPE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// readConfigFile opens the file once and validates the open descriptor, so the
// checked file is the one that is read.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// UserConfigDir returns ~/.config/vibecope.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// EnsureConfigDir creates ~/.config/vibecope with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := UserConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath checks that path, after resolving symlinks, lies inside an
// allowed directory. It runs even if the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	userDir, err := UserConfigDir()
	if err != nil {
		return err
	}

	for _, dir := range []string{userDir, filepath.Join("/etc", appDir)} {
		if strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/%s/ or /etc/%s/", appDir, appDir)
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0o600 && perm != 0o400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// applyDefaults fills values that an override may have blanked.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Settings.Path == "" {
		if dir, err := UserConfigDir(); err == nil {
			cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
		}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
