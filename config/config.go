// Package config loads server configuration from TOML or YAML files with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/reverie/logging"
	"github.com/vinayprograms/reverie/memory"
)

// Environment variables that override file settings.
const (
	EnvAddr         = "REVERIE_ADDR"
	EnvStorageDir   = "REVERIE_STORAGE_DIR"
	EnvLogLevel     = "REVERIE_LOG_LEVEL"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"ratelimit" yaml:"ratelimit"`
	Bus       BusConfig       `toml:"bus" yaml:"bus"`
	Feed      FeedConfig      `toml:"feed" yaml:"feed"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	// Backend is "file", "memory" or "nats". The nats backend keeps
	// records in a JetStream KV bucket on the bus connection.
	Backend string `toml:"backend" yaml:"backend"`

	// Dir holds one file per record.
	Dir string `toml:"dir" yaml:"dir"`

	// Format is "json" or "yaml".
	Format string `toml:"format" yaml:"format"`

	// Keys is "timestamp" (last write wins) or "unique".
	Keys string `toml:"keys" yaml:"keys"`

	// Bucket names the KV bucket for the nats backend.
	Bucket string `toml:"bucket" yaml:"bucket"`
}

// LoggingConfig sets the minimum log level.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// RateLimitConfig throttles saves. Writes <= 0 disables the limit.
type RateLimitConfig struct {
	Writes int           `toml:"writes" yaml:"writes"`
	Window time.Duration `toml:"window" yaml:"window"`
}

// BusConfig selects the event bus. An empty NATSURL keeps events in process.
type BusConfig struct {
	NATSURL string `toml:"nats_url" yaml:"nats_url"`
	Name    string `toml:"name" yaml:"name"`
}

// FeedConfig configures the live event streams.
type FeedConfig struct {
	HeartbeatInterval time.Duration `toml:"heartbeat_interval" yaml:"heartbeat_interval"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `toml:"endpoint" yaml:"endpoint"`
	Protocol    string `toml:"protocol" yaml:"protocol"`
	Insecure    bool   `toml:"insecure" yaml:"insecure"`
	ServiceName string `toml:"service_name" yaml:"service_name"`
	Debug       bool   `toml:"debug" yaml:"debug"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // streams stay open
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     "memory_storage",
			Format:  "json",
			Keys:    "timestamp",
			Bucket:  memory.DefaultKVBucket,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			Writes: 0,
			Window: time.Minute,
		},
		Bus: BusConfig{
			Name: "reverie",
		},
		Feed: FeedConfig{
			HeartbeatInterval: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "reverie",
		},
	}
}

// StandardPaths returns the config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"reverie.toml", "reverie.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "reverie", "reverie.toml"),
			filepath.Join(home, ".config", "reverie", "reverie.yaml"),
		)
	}
	return paths
}

// Load reads the first standard config file that exists, applies the
// environment and validates. With no file present it returns Default()
// with the environment applied and an empty path.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}
	}

	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFile reads path over the defaults, applies the environment and
// validates. The format follows the extension: .toml, .yaml or .yml.
// Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" {
		c.Telemetry.Endpoint = v
	}
}

// Validate checks the configuration for values the server cannot use.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	case BackendMemory:
	case BackendNATS:
		if c.Bus.NATSURL == "" {
			return fmt.Errorf("storage.backend nats requires bus.nats_url")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of file, memory, nats", c.Storage.Backend)
	}
	if _, err := memory.CodecFor(c.Storage.Format); err != nil {
		return fmt.Errorf("storage.format: %w", err)
	}
	if _, err := memory.KeysFor(c.Storage.Keys); err != nil {
		return fmt.Errorf("storage.keys: %w", err)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if c.RateLimit.Writes > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive when ratelimit.writes is set")
	}

	if c.Feed.HeartbeatInterval < 0 {
		return fmt.Errorf("feed.heartbeat_interval must not be negative")
	}

	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol %q is not one of grpc, http", c.Telemetry.Protocol)
	}
	return nil
}
