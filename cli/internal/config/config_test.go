package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	require.NotNil(t, cfg.Defaults)
	assert.Equal(t, "http://localhost:8000", cfg.Defaults.IngestURL)
	assert.Equal(t, DefaultDatabaseURL, cfg.Defaults.DatabaseURL)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, DefaultIngestURL, cfg.IngestURL(""))
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `current_profile: staging
profiles:
  staging:
    ingest_url: https://pmap.staging.example.com
    database_url: sqlite:///var/lib/pmap/pmap.db
defaults:
  ingest_url: http://localhost:8000
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "staging")
	assert.Equal(t, "https://pmap.staging.example.com", cfg.IngestURL(""))
	assert.Equal(t, "sqlite:///var/lib/pmap/pmap.db", cfg.DatabaseURL(""))
}

func TestLoad_WithEnvironmentOverrides(t *testing.T) {
	t.Setenv("PMAPCTL_INGEST_URL", "http://env-ingest:9000")
	t.Setenv("PMAPCTL_DATABASE_URL", "sqlite://env.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://env-ingest:9000", cfg.Defaults.IngestURL)
	assert.Equal(t, "sqlite://env.db", cfg.DatabaseURL(""))
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("profiles: [unterminated"), 0600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestSetIngestURL_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NoError(t, cfg.SetIngestURL("prod", "https://pmap.example.com/"))
	require.NoError(t, cfg.SetDatabaseURL("prod", "postgres://prod/pmap"))
	require.NoError(t, cfg.UseProfile("prod"))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "prod", reloaded.CurrentProfile)
	assert.Equal(t, "https://pmap.example.com", reloaded.IngestURL(""))
	assert.Equal(t, "postgres://prod/pmap", reloaded.DatabaseURL("prod"))
}

func TestUseProfile_Unknown(t *testing.T) {
	cfg := Default()
	err := cfg.UseProfile("nope")
	assert.EqualError(t, err, "profile 'nope' not found")
}

func TestRemoveProfile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.SetIngestURL("temp", "http://temp:8000"))
	require.NoError(t, cfg.UseProfile("temp"))

	require.NoError(t, cfg.RemoveProfile("temp"))
	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotContains(t, cfg.Profiles, "temp")
	assert.Error(t, cfg.RemoveProfile("temp"))
}

func TestURLFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *Config
		profile    string
		wantIngest string
	}{
		{
			name:       "profile wins",
			cfg:        &Config{Profiles: map[string]*Profile{"a": {IngestURL: "http://a"}}, Defaults: &Defaults{IngestURL: "http://d"}},
			profile:    "a",
			wantIngest: "http://a",
		},
		{
			name:       "empty profile field falls back to defaults",
			cfg:        &Config{Profiles: map[string]*Profile{"a": {}}, Defaults: &Defaults{IngestURL: "http://d"}},
			profile:    "a",
			wantIngest: "http://d",
		},
		{
			name:       "nil defaults",
			cfg:        &Config{},
			profile:    "missing",
			wantIngest: DefaultIngestURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIngest, tt.cfg.IngestURL(tt.profile))
		})
	}
}
