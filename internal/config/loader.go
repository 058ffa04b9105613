package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/document"
)

// ProfileEnv names the environment variable holding the YAML profile path.
const ProfileEnv = "TBLIMPORT_CONFIG"

// Load reads configuration using the YAML profile at path, or the one named
// by TBLIMPORT_CONFIG when path is empty. A .env file in the working
// directory is loaded first; variables already set in the environment are
// not overwritten by it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config load: .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(ProfileEnv)
	}
	return LoadProfile(path)
}

// LoadProfile reads configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment.
func LoadProfile(path string) (*Config, error) {
	cfg := &Config{}
	v := reflect.ValueOf(cfg).Elem()

	if err := loadStruct(v, defaultSource); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: profile: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config load: profile %s: %w", path, err)
		}
	}

	if err := loadStruct(v, envSource); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// source yields the raw value for a field, or "" to leave it alone.
type source func(field reflect.StructField) (string, error)

func defaultSource(field reflect.StructField) (string, error) {
	return field.Tag.Get("default"), nil
}

func envSource(field reflect.StructField) (string, error) {
	envName := field.Tag.Get("env")
	if envName == "" {
		return "", nil
	}
	// Try primary env var, then alternate
	value := os.Getenv(envName)
	if value == "" {
		if alt := field.Tag.Get("envAlt"); alt != "" {
			value = os.Getenv(alt)
		}
	}
	return value, nil
}

// loadStruct recursively populates struct fields from src.
func loadStruct(v reflect.Value, src source) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, src); err != nil {
				return err
			}
			continue
		}

		value, err := src(field)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", field.Tag.Get("env"), value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true, "memory": true}
	if !validDrivers[strings.ToLower(c.Store.Driver)] {
		errs = append(errs, fmt.Sprintf("STORE_DRIVER (%q) must be one of: sqlite, postgres, mysql, memory", c.Store.Driver))
	}
	if c.Store.URL == "" && strings.ToLower(c.Store.Driver) != "memory" {
		errs = append(errs, "STORE_URL is required unless STORE_DRIVER is memory")
	}
	if c.Store.BusyTimeout < 0 {
		errs = append(errs, "STORE_BUSY_TIMEOUT must be non-negative")
	}

	// Import validation
	if c.Import.MaxDocumentSize <= 0 || c.Import.MaxDocumentSize > document.MaxSize {
		errs = append(errs, fmt.Sprintf("IMPORT_MAX_DOCUMENT_SIZE (%d) must be 1-%d", c.Import.MaxDocumentSize, document.MaxSize))
	}
	if _, _, err := codepage.Lookup(c.Import.Encoding); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_ENCODING: %v", err))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequireAPIKey && len(c.Server.Keys()) == 0 {
		errs = append(errs, "SERVER_API_KEYS must be set when SERVER_REQUIRE_API_KEY is true")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true, "console": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json, console", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials in the store URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Store: {Driver: %q, URL: %q, WAL: %v}, ", c.Store.Driver, maskURL(c.Store.URL), c.Store.WAL))
	b.WriteString(fmt.Sprintf("Import: {Encoding: %q, MaxDocumentSize: %d}, ", c.Import.Encoding, c.Import.MaxDocumentSize))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d, RequireAPIKey: %v, APIKeys: %d}, ", c.Server.Host, c.Server.Port, c.Server.RequireAPIKey, len(c.Server.Keys())))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL hides the password of a URL-style DSN. Plain paths pass through.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		if strings.Contains(raw, "@") {
			return "[MASKED]"
		}
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
