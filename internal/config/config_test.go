package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromYAML(t *testing.T) {
	yamlContent := `
server:
  address: ":9090"
mysql:
  host: "db.internal"
  port: 3306
  username: "portal"
  database: "laborgrow"
  log_level: 2
geocoder:
  base_url: "https://geo.example.com"
admin:
  secret_key: "super-secret"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, ":9090", config.Server.Address)
	assert.Equal(t, "db.internal", config.MySQL.Host)
	assert.Equal(t, 2, config.MySQL.LogLevel)
	assert.Equal(t, "https://geo.example.com", config.Geocoder.BaseURL)
	assert.Equal(t, "super-secret", config.Admin.SecretKey)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte("mysql:\n  host: localhost\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, "5s", config.RabbitMQ.RetryInterval)
	assert.Equal(t, 10, config.Auth.TimeoutSeconds)
	assert.Equal(t, "laborgrow/1.0", config.Geocoder.UserAgent)
	assert.Equal(t, "resumes", config.MinIO.ResumesBucket)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_SECRET_KEY", "from-env")
	t.Setenv("AUTH_SERVICE_KEY", "svc-key")

	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte("admin:\n  secret_key: from-yaml\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Admin.SecretKey)
	assert.Equal(t, "svc-key", config.Auth.APIKey)
}

func TestLoadConfigMissingFileInTests(t *testing.T) {
	// Inside `go test` a missing file falls back to the default config
	// instead of failing.
	config, err := LoadConfig(filepath.Join(os.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "laborgrow", config.MySQL.Database)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, GetDuration("not-a-duration", 5*time.Second))
	assert.Equal(t, 250*time.Millisecond, GetDuration("250ms", 5*time.Second))
}
