// Package config provides centralized configuration management for the
// importer. Settings come from built-in defaults, an optional YAML profile
// and environment variables, in that order of increasing precedence, and are
// validated up front so a batch job fails before touching any data.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Import  ImportConfig  `yaml:"import"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig selects where table libraries live.
type StoreConfig struct {
	// Driver is sqlite, postgres, mysql or memory (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite" yaml:"driver"`

	// URL is the driver's data source name. For sqlite it is a file path.
	URL string `env:"STORE_URL" envAlt:"DATABASE_URL" default:"tblimport.db" yaml:"url"`

	// BusyTimeout is how long sqlite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `env:"STORE_BUSY_TIMEOUT" default:"5s" yaml:"busy_timeout"`

	// WAL enables sqlite write-ahead logging (default: true)
	WAL bool `env:"STORE_WAL" default:"true" yaml:"wal"`
}

// ImportConfig holds import defaults.
type ImportConfig struct {
	// Encoding is the store encoding used when a run names none.
	// Empty means the default legacy code page.
	Encoding string `env:"IMPORT_ENCODING" yaml:"encoding"`

	// MaxDocumentSize is the largest accepted document in bytes
	MaxDocumentSize int `env:"IMPORT_MAX_DOCUMENT_SIZE" default:"9999999" yaml:"max_document_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0" yaml:"host"`
	Port int    `env:"SERVER_PORT" default:"8080" yaml:"port"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s" yaml:"write_timeout"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" yaml:"shutdown_timeout"`

	// RequestTimeout bounds a single import request (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s" yaml:"request_timeout"`

	// RequireAPIKey rejects imports without a valid X-API-Key header
	RequireAPIKey bool `env:"SERVER_REQUIRE_API_KEY" default:"false" yaml:"require_api_key"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys string `env:"SERVER_API_KEYS" yaml:"api_keys"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are honoured
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" yaml:"level"`

	// Format is text, json or console (default: text)
	Format string `env:"LOG_FORMAT" default:"text" yaml:"format"`
}

// Keys returns the configured API keys.
func (c *ServerConfig) Keys() []string { return splitList(c.APIKeys) }

// Proxies returns the configured trusted proxy CIDRs.
func (c *ServerConfig) Proxies() []string { return splitList(c.TrustedProxies) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
