// Package config provides configuration management for dilse.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkerPort is the HTTP port of the worker.
	DefaultWorkerPort = 37790

	// DefaultWorkerHost binds the worker to loopback.
	DefaultWorkerHost = "127.0.0.1"

	// DefaultModel is the generation model.
	DefaultModel = "gemini-1.5-flash"

	// DefaultMaxMessageTokens caps chat messages sent upstream.
	DefaultMaxMessageTokens = 1024

	dataDirName      = ".dilse"
	dbFileName       = "dilse.db"
	settingsFileName = "settings.json"
	catalogFileName  = "catalog.yml"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the worker configuration. JSON keys double as environment
// variable names; the environment wins over the settings file.
type Config struct {
	WorkerHost        string `json:"DILSE_WORKER_HOST"`
	DBDriver          string `json:"DILSE_DB_DRIVER"`
	DBPath            string `json:"DILSE_DB_PATH"`
	DatabaseDSN       string `json:"DILSE_DATABASE_DSN"`
	FirebaseAPIKey    string `json:"DILSE_FIREBASE_API_KEY"`
	FirebaseBaseURL   string `json:"DILSE_FIREBASE_BASE_URL"`
	GeminiAPIKey      string `json:"DILSE_GEMINI_API_KEY"`
	Model             string `json:"DILSE_MODEL"`
	Timezone          string `json:"DILSE_TIMEZONE"`
	CatalogPath       string `json:"DILSE_CATALOG_PATH"`
	LogLevel          string `json:"DILSE_LOG_LEVEL"`
	WorkerPort        int    `json:"DILSE_WORKER_PORT"`
	MaxConns          int    `json:"DILSE_MAX_CONNS"`
	IdentityTimeout   int    `json:"DILSE_IDENTITY_TIMEOUT_SECONDS"`
	GenerationTimeout int    `json:"DILSE_GENERATION_TIMEOUT_SECONDS"`
	MaxMessageTokens  int    `json:"DILSE_MAX_MESSAGE_TOKENS"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerHost:        DefaultWorkerHost,
		WorkerPort:        DefaultWorkerPort,
		DBDriver:          DriverSQLite,
		DBPath:            DBPath(),
		CatalogPath:       CatalogPath(),
		Model:             DefaultModel,
		LogLevel:          "info",
		MaxConns:          4,
		IdentityTimeout:   10,
		GenerationTimeout: 30,
		MaxMessageTokens:  DefaultMaxMessageTokens,
	}
}

// DataDir returns the data directory path.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the default sqlite database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFileName)
}

// CatalogPath returns the default catalog override path.
func CatalogPath() string {
	return filepath.Join(DataDir(), catalogFileName)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]any{
		"DILSE_WORKER_PORT": DefaultWorkerPort,
		"DILSE_DB_DRIVER":   DriverSQLite,
		"DILSE_MODEL":       DefaultModel,
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and default settings.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file and applies environment overrides.
// A missing or unparsable settings file leaves the defaults in place.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			log.Warn().Err(jsonErr).Str("path", SettingsPath()).Msg("Ignoring unparsable settings file")
			cfg = Default()
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("DILSE_WORKER_HOST", &c.WorkerHost)
	envString("DILSE_DB_DRIVER", &c.DBDriver)
	envString("DILSE_DB_PATH", &c.DBPath)
	envString("DILSE_DATABASE_DSN", &c.DatabaseDSN)
	envString("DILSE_FIREBASE_API_KEY", &c.FirebaseAPIKey)
	envString("DILSE_FIREBASE_BASE_URL", &c.FirebaseBaseURL)
	envString("GEMINI_API_KEY", &c.GeminiAPIKey)
	envString("DILSE_GEMINI_API_KEY", &c.GeminiAPIKey)
	envString("DILSE_MODEL", &c.Model)
	envString("DILSE_TIMEZONE", &c.Timezone)
	envString("DILSE_CATALOG_PATH", &c.CatalogPath)
	envString("DILSE_LOG_LEVEL", &c.LogLevel)
	envInt("DILSE_WORKER_PORT", &c.WorkerPort)
	envInt("DILSE_MAX_CONNS", &c.MaxConns)
	envInt("DILSE_IDENTITY_TIMEOUT_SECONDS", &c.IdentityTimeout)
	envInt("DILSE_GENERATION_TIMEOUT_SECONDS", &c.GenerationTimeout)
	envInt("DILSE_MAX_MESSAGE_TOKENS", &c.MaxMessageTokens)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt applies positive integer overrides only.
func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid integer override")
		return
	}
	*dst = n
}

// Get returns the global configuration, loading it on first use.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			log.Warn().Err(err).Msg("Falling back to default configuration")
			globalConfig = Default()
		}
	})
	return globalConfig
}

// GetWorkerPort returns the worker port, preferring DILSE_WORKER_PORT.
func GetWorkerPort() int {
	if v := os.Getenv("DILSE_WORKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}

// Addr returns the worker listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.WorkerHost, c.WorkerPort)
}

// Location resolves Timezone. Empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// IdentityTimeoutDuration returns the identity provider request timeout.
func (c *Config) IdentityTimeoutDuration() time.Duration {
	return time.Duration(c.IdentityTimeout) * time.Second
}

// GenerationTimeoutDuration returns the generation request timeout.
func (c *Config) GenerationTimeoutDuration() time.Duration {
	return time.Duration(c.GenerationTimeout) * time.Second
}

// MisconfiguredError reports a setting that disables a feature.
type MisconfiguredError struct {
	Key    string
	Reason string
}

func (e *MisconfiguredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// ErrUnknownDriver is returned by Validate for an unsupported store driver.
var ErrUnknownDriver = errors.New("unknown store driver")

// Validate reports missing credentials and unusable values. Missing
// credentials are MisconfiguredErrors; the worker still starts without them.
func (c *Config) Validate() []error {
	var errs []error

	if c.FirebaseAPIKey == "" {
		errs = append(errs, &MisconfiguredError{Key: "DILSE_FIREBASE_API_KEY", Reason: "identity provider disabled, sign-in will fail"})
	}
	if c.GeminiAPIKey == "" {
		errs = append(errs, &MisconfiguredError{Key: "DILSE_GEMINI_API_KEY", Reason: "chat replies disabled, emoji replies still work"})
	}

	switch c.DBDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, &MisconfiguredError{Key: "DILSE_DATABASE_DSN", Reason: "required for the postgres driver"})
		}
	default:
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownDriver, c.DBDriver))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, &MisconfiguredError{Key: "DILSE_TIMEZONE", Reason: err.Error()})
	}
	return errs
}
