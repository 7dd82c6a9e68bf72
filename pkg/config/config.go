// Package config provides environment-based configuration for the mission console.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the console binaries.
type Config struct {
	// Control plane base URL; the stream URL is derived from it.
	APIURL     string `yaml:"api_url"`
	StreamPath string `yaml:"stream_path"`
	// Bearer token passed through to the stream and REST calls.
	Token string `yaml:"token"`

	// Stream behaviour
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	MaxEntries       int           `yaml:"max_entries"`

	// Export naming
	Product   string `yaml:"product"`
	ExportDir string `yaml:"export_dir"`

	// Console HTTP server
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	LogFile  string `yaml:"log_file"`
}

// Load reads configuration from environment variables, applying the YAML
// file named by CONSOLE_CONFIG first when set. Environment variables take
// precedence over the file.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		APIURL:           "http://localhost:8080",
		StreamPath:       "/ws/logs",
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxEntries:       0,
		Product:          "mission-console",
		ExportDir:        ".",
		ListenAddr:       "127.0.0.1:8090",
		ShutdownTimeout:  30 * time.Second,
		LogLevel:         "info",
		LogJSON:          true,
	}
}

// LoadFile overlays the YAML file at path onto the defaults without
// reading the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("CONSOLE_API_URL", c.APIURL)
	c.StreamPath = getEnv("CONSOLE_STREAM_PATH", c.StreamPath)
	c.Token = getEnv("CONSOLE_TOKEN", c.Token)
	c.ReconnectDelay = getDurationEnv("CONSOLE_RECONNECT_DELAY", c.ReconnectDelay)
	c.HandshakeTimeout = getDurationEnv("CONSOLE_HANDSHAKE_TIMEOUT", c.HandshakeTimeout)
	c.MaxEntries = getIntEnv("CONSOLE_MAX_ENTRIES", c.MaxEntries)
	c.Product = getEnv("CONSOLE_PRODUCT", c.Product)
	c.ExportDir = getEnv("CONSOLE_EXPORT_DIR", c.ExportDir)
	c.ListenAddr = getEnv("CONSOLE_LISTEN_ADDR", c.ListenAddr)
	c.ShutdownTimeout = getDurationEnv("CONSOLE_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.LogLevel = getEnv("CONSOLE_LOG_LEVEL", c.LogLevel)
	c.LogJSON = getBoolEnv("CONSOLE_LOG_JSON", c.LogJSON)
	c.LogFile = getEnv("CONSOLE_LOG_FILE", c.LogFile)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CONSOLE_API_URL is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("CONSOLE_API_URL must be an http or https URL")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("CONSOLE_RECONNECT_DELAY must be positive")
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("CONSOLE_MAX_ENTRIES must not be negative")
	}
	if c.Product == "" {
		return fmt.Errorf("CONSOLE_PRODUCT must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
