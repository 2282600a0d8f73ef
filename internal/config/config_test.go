package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)

	// Only the in-process analyzers run out of the box.
	assert.True(t, cfg.Engines.Axe.Enabled)
	assert.True(t, cfg.Engines.Keyboard.Enabled)
	assert.True(t, cfg.Engines.LiveRegion.Enabled)
	assert.False(t, cfg.Engines.Pa11y.Enabled)
	assert.False(t, cfg.Engines.Lighthouse.Enabled)
	assert.False(t, cfg.Engines.IBM.Enabled)
	assert.False(t, cfg.Engines.Alfa.Enabled)
	assert.False(t, cfg.Engines.Wave.Enabled)

	assert.Equal(t, 100, cfg.Engines.Keyboard.MaxElements)
	assert.Equal(t, 3, cfg.Engines.Keyboard.TrapDetectionThreshold)
	assert.Equal(t, "https://wave.webaim.org/api/request", cfg.Engines.Wave.Endpoint)
	assert.Equal(t, 4, cfg.Audit.MaxPages)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: debug
engines:
  pa11y:
    enabled: true
    binary: /usr/local/bin/pa11y
  keyboard:
    max_elements: 25
auth:
  enabled: true
  username: auditor
  password: hunter2
`), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Engines.Pa11y.Enabled)
	assert.Equal(t, "/usr/local/bin/pa11y", cfg.Engines.Pa11y.Binary)
	assert.Equal(t, 25, cfg.Engines.Keyboard.MaxElements)
	// File values merge over defaults.
	assert.Equal(t, 3, cfg.Engines.Keyboard.TrapDetectionThreshold)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "auditor", cfg.Auth.Username)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.True(t, cfg.Engines.Axe.Enabled)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"wave without key", func(c *Config) { c.Engines.Wave.Enabled = true }, "api_key"},
		{"wave with key", func(c *Config) {
			c.Engines.Wave.Enabled = true
			c.Engines.Wave.APIKey = "k"
		}, ""},
		{"zero max elements", func(c *Config) { c.Engines.Keyboard.MaxElements = 0 }, "max_elements"},
		{"threshold too low", func(c *Config) { c.Engines.Keyboard.TrapDetectionThreshold = 1 }, "trap_detection_threshold"},
		{"zero max pages", func(c *Config) { c.Audit.MaxPages = 0 }, "max_pages"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefault()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
