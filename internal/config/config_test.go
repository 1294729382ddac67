package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/domain"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Provider.APIKey = "secret"
	cfg.Instance = InstanceConfig{ID: "instance-1", AccountID: "acct-1"}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Provider.Kind)
	assert.Equal(t, 3, cfg.Provider.FetchConcurrency)
	assert.Equal(t, domain.ScanTypeStatic, cfg.Provider.ScanType)
	assert.Equal(t, "scansync.runs", cfg.Notify.Subject)
	assert.Equal(t, "badger", cfg.State.Backend)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scansync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  whitehatApiKey: from-file
  fetchConcurrency: 5
  applicationIds: ["1", "2"]
  timeout: 45s
instance:
  integrationInstanceId: file-instance
  accountId: file-account
state:
  backend: redis
  redisUrl: redis://localhost:6379
`), 0o600))

	t.Setenv("WHITEHAT_API_KEY", "from-env")
	t.Setenv("PROVIDER_APPLICATION_IDS", "9, 8,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Provider.APIKey, "environment wins over the file")
	assert.Equal(t, 5, cfg.Provider.FetchConcurrency)
	assert.Equal(t, []string{"9", "8"}, cfg.Provider.ApplicationIDs)
	assert.Equal(t, 45*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "file-instance", cfg.Instance.ID)
	assert.Equal(t, "redis", cfg.State.Backend)
	assert.Equal(t, 500, cfg.Provider.PageSize, "unset values keep their defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "SERVER_READ_TIMEOUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_MissingConfiguration(t *testing.T) {
	var cfg *Config
	err := cfg.Validate()

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, errors.Is(err, domain.ErrMissingConfiguration))
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.APIKey = ""

	err := cfg.Validate()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "whitehatApiKey is required", cfgErr.Reason)
}

func TestValidate_FileProviderNeedsNoAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.APIKey = ""
	cfg.Provider.Kind = "file"
	cfg.Provider.DatasetPath = "findings.json"

	assert.NoError(t, cfg.Validate())
}

func TestValidate_Ranges(t *testing.T) {
	cases := map[string]func(*Config){
		"concurrency":  func(c *Config) { c.Provider.FetchConcurrency = 0 },
		"scan type":    func(c *Config) { c.Provider.ScanType = "MOBILE" },
		"backend":      func(c *Config) { c.State.Backend = "sqlite" },
		"redis url":    func(c *Config) { c.State.Backend = "redis" },
		"instance id":  func(c *Config) { c.Instance.ID = "" },
		"base url":     func(c *Config) { c.Provider.BaseURL = "not a url" },
		"dataset path": func(c *Config) { c.Provider.Kind = "file" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, cfg.Validate(), &cfgErr)
		})
	}
}
