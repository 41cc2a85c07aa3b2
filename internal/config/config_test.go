package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.T().Setenv("HOME", s.tempDir)
	for _, key := range []string{
		"DILSE_WORKER_PORT", "DILSE_MODEL", "DILSE_GEMINI_API_KEY", "GEMINI_API_KEY",
		"DILSE_FIREBASE_API_KEY", "DILSE_DB_DRIVER", "DILSE_TIMEZONE",
	} {
		s.T().Setenv(key, "")
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) writeSettings(content string) {
	s.Require().NoError(os.MkdirAll(filepath.Join(s.tempDir, ".dilse"), 0750))
	s.Require().NoError(os.WriteFile(filepath.Join(s.tempDir, ".dilse", "settings.json"), []byte(content), 0600))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultWorkerHost, cfg.WorkerHost)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(DriverSQLite, cfg.DBDriver)
	s.Equal(4, cfg.MaxConns)
	s.Equal(10*time.Second, cfg.IdentityTimeoutDuration())
	s.Equal(30*time.Second, cfg.GenerationTimeoutDuration())
	s.Equal(DefaultMaxMessageTokens, cfg.MaxMessageTokens)
	s.Equal(filepath.Join(s.tempDir, ".dilse", "dilse.db"), cfg.DBPath)
}

func (s *ConfigSuite) TestPaths() {
	s.Equal(filepath.Join(s.tempDir, ".dilse"), DataDir())
	s.Contains(DBPath(), "dilse.db")
	s.Contains(SettingsPath(), "settings.json")
	s.Contains(CatalogPath(), "catalog.yml")
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(EnsureSettings())

	info, err := os.Stat(SettingsPath())
	s.Require().NoError(err)
	s.False(info.IsDir())

	// Existing file is left untouched.
	s.writeSettings(`{"DILSE_MODEL": "custom"}`)
	s.Require().NoError(EnsureSettings())
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal("custom", cfg.Model)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	s.Require().NoError(EnsureAll())

	_, err := os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name         string
		settingsJSON string
		env          map[string]string
		wantPort     int
		wantModel    string
		wantDriver   string
	}{
		{
			name:       "no settings file",
			wantPort:   DefaultWorkerPort,
			wantModel:  DefaultModel,
			wantDriver: DriverSQLite,
		},
		{
			name:         "custom port",
			settingsJSON: `{"DILSE_WORKER_PORT": 38888}`,
			wantPort:     38888,
			wantModel:    DefaultModel,
			wantDriver:   DriverSQLite,
		},
		{
			name:         "multiple settings",
			settingsJSON: `{"DILSE_WORKER_PORT": 39999, "DILSE_MODEL": "gemini-2.0-flash", "DILSE_DB_DRIVER": "memory"}`,
			wantPort:     39999,
			wantModel:    "gemini-2.0-flash",
			wantDriver:   DriverMemory,
		},
		{
			name:         "invalid JSON returns defaults",
			settingsJSON: `{invalid}`,
			wantPort:     DefaultWorkerPort,
			wantModel:    DefaultModel,
			wantDriver:   DriverSQLite,
		},
		{
			name:         "env overrides file",
			settingsJSON: `{"DILSE_WORKER_PORT": 39999, "DILSE_MODEL": "from-file"}`,
			env:          map[string]string{"DILSE_WORKER_PORT": "41000", "DILSE_MODEL": "from-env"},
			wantPort:     41000,
			wantModel:    "from-env",
			wantDriver:   DriverSQLite,
		},
		{
			name:       "invalid env int ignored",
			env:        map[string]string{"DILSE_WORKER_PORT": "not-a-number"},
			wantPort:   DefaultWorkerPort,
			wantModel:  DefaultModel,
			wantDriver: DriverSQLite,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			home := s.T().TempDir()
			s.T().Setenv("HOME", home)
			s.tempDir = home
			for k, v := range tt.env {
				s.T().Setenv(k, v)
			}
			if tt.settingsJSON != "" {
				s.writeSettings(tt.settingsJSON)
			}

			cfg, err := Load()
			s.Require().NoError(err)
			s.Equal(tt.wantPort, cfg.WorkerPort)
			s.Equal(tt.wantModel, cfg.Model)
			s.Equal(tt.wantDriver, cfg.DBDriver)
		})
	}
}

func (s *ConfigSuite) TestGeminiKeyFromEnv() {
	s.T().Setenv("GEMINI_API_KEY", "legacy-key")
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal("legacy-key", cfg.GeminiAPIKey)

	s.T().Setenv("DILSE_GEMINI_API_KEY", "preferred-key")
	cfg, err = Load()
	s.Require().NoError(err)
	s.Equal("preferred-key", cfg.GeminiAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantKeys []string
		wantErr  error
	}{
		{
			name:     "missing credentials",
			mutate:   func(*Config) {},
			wantKeys: []string{"DILSE_FIREBASE_API_KEY", "DILSE_GEMINI_API_KEY"},
		},
		{
			name: "fully configured",
			mutate: func(c *Config) {
				c.FirebaseAPIKey = "fb"
				c.GeminiAPIKey = "gm"
			},
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.FirebaseAPIKey = "fb"
				c.GeminiAPIKey = "gm"
				c.DBDriver = DriverPostgres
			},
			wantKeys: []string{"DILSE_DATABASE_DSN"},
		},
		{
			name: "bad timezone",
			mutate: func(c *Config) {
				c.FirebaseAPIKey = "fb"
				c.GeminiAPIKey = "gm"
				c.Timezone = "Mars/Olympus_Mons"
			},
			wantKeys: []string{"DILSE_TIMEZONE"},
		},
		{
			name: "unknown driver",
			mutate: func(c *Config) {
				c.FirebaseAPIKey = "fb"
				c.GeminiAPIKey = "gm"
				c.DBDriver = "mongo"
			},
			wantErr: ErrUnknownDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			var keys []string
			for _, err := range errs {
				var mis *MisconfiguredError
				if errors.As(err, &mis) {
					keys = append(keys, mis.Key)
				}
			}
			assert.Equal(t, tt.wantKeys, keys)
			if tt.wantErr != nil {
				require.Len(t, errs, 1)
				assert.ErrorIs(t, errs[0], tt.wantErr)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.WorkerPort = 4000
	assert.Equal(t, "127.0.0.1:4000", cfg.Addr())
}

// TestGetWorkerPort_WithEnv tests GetWorkerPort with environment variable.
func TestGetWorkerPort_WithEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	t.Setenv("DILSE_WORKER_PORT", "45678")
	assert.Equal(t, 45678, GetWorkerPort())

	t.Setenv("DILSE_WORKER_PORT", "not-a-number")
	assert.Greater(t, GetWorkerPort(), 0)

	t.Setenv("DILSE_WORKER_PORT", "0")
	assert.Greater(t, GetWorkerPort(), 0)
}
