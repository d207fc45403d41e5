package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apxfed/apx/federation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlagsOverridesDefaultConfig(t *testing.T) {
	cli.Domain = "example.social"
	cli.DatabaseDSN = "sqlite://file::memory:"
	cli.ProxyURL = "http://proxy.local:8080"
	cli.FetcherTimeout = 45 * time.Second
	cli.DelivererTimeout = 20 * time.Second
	cli.DelivererPoolSize = 4

	cfg := federation.DefaultConfig()
	applyFlags(&cfg)

	assert.Equal(t, "example.social", cfg.Domain)
	assert.Equal(t, "sqlite://file::memory:", cfg.DatabaseDSN)
	assert.Equal(t, "http://proxy.local:8080", cfg.ProxyURL)
	assert.Equal(t, 45*time.Second, cfg.FetcherTimeout)
	assert.Equal(t, 20*time.Second, cfg.DelivererTimeout)
	assert.Equal(t, 4, cfg.DelivererPoolSize)
}

func TestLoadConfigFileUnmarshalsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domain: yaml.example\nuser_agent: test-agent/1.0\n"), 0o644))

	cfg := federation.DefaultConfig()
	require.NoError(t, loadConfigFile(path, &cfg))

	assert.Equal(t, "yaml.example", cfg.Domain)
	assert.Equal(t, "test-agent/1.0", cfg.UserAgent)
}

func TestLoadConfigFileFailsOnMissingFile(t *testing.T) {
	cfg := federation.DefaultConfig()
	err := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	assert.Error(t, err)
}
