package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LISTINGS_URL", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "NATS_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 100, cfg.Limit)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 20*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 10, cfg.MaxScrolls)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
limit: 25
renderer: static
headless: false
pace_delay: 1500ms
polite_delay: 0s
database_url: sqlite://from-yaml.db
`)
	t.Setenv("DATABASE_URL", "postgres://user:pw@localhost:5432/jobs")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Limit)
	assert.Equal(t, RendererStatic, cfg.Renderer)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 1500*time.Millisecond, cfg.PaceDelay)
	assert.Equal(t, 2*time.Second, cfg.ScrollDelay)
	assert.Equal(t, time.Duration(0), cfg.PoliteDelay)
	assert.Equal(t, "postgres://user:pw@localhost:5432/jobs", cfg.DatabaseURL)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, ":9090", cfg.ServerAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "limit: [1, 2"},
		{name: "relative listings url", yaml: "listings_url: /jobs"},
		{name: "unknown renderer", yaml: "renderer: selenium"},
		{name: "negative delay", yaml: "pace_delay: -1s"},
		{name: "bad chat id", yaml: "", env: map[string]string{"TELEGRAM_CHAT_ID": "abc"}},
		{name: "token without chat", yaml: "telegram_token: abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSetPaceDelaySeconds(t *testing.T) {
	cfg := Default()
	cfg.SetPaceDelaySeconds(1.5)
	assert.Equal(t, 1500*time.Millisecond, cfg.PaceDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.ScrollDelay)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
		got   func(c *Config) any
		want  any
	}{
		{"LISTINGS_URL", "https://example.com/jobs", func(c *Config) any { return c.ListingsURL }, "https://example.com/jobs"},
		{"DATABASE_URL", "sqlite://other.db", func(c *Config) any { return c.DatabaseURL }, "sqlite://other.db"},
		{"REDIS_ADDR", "redis:6379", func(c *Config) any { return c.RedisAddr }, "redis:6379"},
		{"REDIS_PASSWORD", "secret", func(c *Config) any { return c.RedisPassword }, "secret"},
		{"NATS_URL", "nats://nats:4222", func(c *Config) any { return c.NATSURL }, "nats://nats:4222"},
		{"TELEGRAM_BOT_TOKEN", "token", func(c *Config) any { return c.TelegramToken }, "token"},
		{"TELEGRAM_CHAT_ID", "-1001", func(c *Config) any { return c.TelegramChatID }, int64(-1001)},
		{"PORT", "8081", func(c *Config) any { return c.ServerAddr }, ":8081"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg := Default()
			require.NoError(t, cfg.applyEnv())
			assert.Equal(t, tt.want, tt.got(cfg))
		})
	}
}
