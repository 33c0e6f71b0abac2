package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	EnvConfigPath, "PORT", "APP_ENV", "DB_PATH", "JWT_SECRET", "SESSION_TTL",
	"NOTIFY_INBOX", "LOG_LEVEL", "LOG_FORMAT", "SENTRY_DSN", "BCRYPT_COST",
	"COOKIE_SECURE", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
}

// clearEnv blanks every variable Load reads, except the ones in keep.
func clearEnv(t *testing.T, keep ...string) {
	t.Helper()
	skip := make(map[string]bool, len(keep))
	for _, k := range keep {
		skip[k] = true
	}
	for _, k := range envKeys {
		if !skip[k] {
			t.Setenv(k, "")
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/krankmeldung.db", cfg.Database.Path)
	assert.Equal(t, "krankmeldung@netlution.de", cfg.Notify.Inbox)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.Auth.GitHub.CallbackURL)
	assert.False(t, cfg.Auth.GitHub.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := writeFile(t, dir, "krankmeldung.yaml", `
server:
  port: 9000
  env: production
database:
  path: /var/lib/krankmeldung.db
auth:
  jwt_secret: from-yaml-secret-value
  session_ttl: 2h
notify:
  inbox: hr@example.com
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/var/lib/krankmeldung.db", cfg.Database.Path)
	assert.Equal(t, "from-yaml-secret-value", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "hr@example.com", cfg.Notify.Inbox)
	assert.Equal(t, "json", cfg.Log.Format)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PathFromEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := writeFile(t, dir, "c.yaml", "server:\n  port: 7000\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := writeFile(t, dir, "c.yaml", "server:\n  port: 7000\nnotify:\n  inbox: file@x.de\n")
	t.Setenv("PORT", "7100")
	t.Setenv("NOTIFY_INBOX", "env@x.de")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("BCRYPT_COST", "10")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "env@x.de", cfg.Notify.Inbox)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
	assert.True(t, cfg.Server.CookieSecure)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t, "SENTRY_DSN")
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, dir, ".env", "SENTRY_DSN=https://key@sentry.example.com/1\n")
	t.Cleanup(func() { os.Unsetenv("SENTRY_DSN") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://key@sentry.example.com/1", cfg.Sentry.DSN)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "PORT", "eighty"},
		{"bad ttl", "SESSION_TTL", "forever"},
		{"bad bool", "COOKIE_SECURE", "maybe"},
		{"bad cost", "BCRYPT_COST", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Auth.JWTSecret = "0123456789abcdef"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"no db path", func(c *Config) { c.Database.Path = "" }, true},
		{"no inbox", func(c *Config) { c.Notify.Inbox = "" }, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
