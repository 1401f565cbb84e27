package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/treatment-companion/internal/auth"
)

const testSecret = "config-test-secret-of-at-least-32-chars"

// clearEnv blanks every key the config reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DB_PATH", "STATIC_DIR", "CORS_ALLOWED_ORIGINS",
		"COOKIE_SECURE", "TOKEN_TTL", "SESSION_SECRET", "SESSION_MAX_AGE",
		"SESSION_PRUNE_INTERVAL", "AUTH_CLIENT_ID", "AUTH_CLIENT_SECRET",
		"AUTH_AUTHORIZE_URL", "AUTH_TOKEN_URL", "AUTH_USERINFO_URL",
		"AUTH_CALLBACK_URL", "AUTH_SCOPES", "LOGIN_RATE", "LOGIN_BURST",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func setProvider(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_CLIENT_ID", "client")
	t.Setenv("AUTH_CLIENT_SECRET", "secret")
	t.Setenv("AUTH_AUTHORIZE_URL", "https://idp.example.com/authorize")
	t.Setenv("AUTH_TOKEN_URL", "https://idp.example.com/token")
	t.Setenv("AUTH_USERINFO_URL", "https://idp.example.com/userinfo")
	t.Setenv("AUTH_CALLBACK_URL", "http://localhost:8080/api/callback")
}

func TestNewConfig_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data/companion.db", cfg.DBPath)
	assert.Empty(t, cfg.StaticDir)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, time.Hour, cfg.Session.PruneInterval)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Auth.Scopes)
	assert.Equal(t, 10.0, cfg.Login.Rate)
	assert.Equal(t, 5, cfg.Login.Burst)
	assert.False(t, cfg.ProviderConfigured())
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name: "server override",
			envVars: map[string]string{
				"PORT":                 "9090",
				"DB_PATH":              "/var/lib/companion/prod.db",
				"STATIC_DIR":           "/srv/www",
				"CORS_ALLOWED_ORIGINS": "https://app.example.com,https://admin.example.com",
				"COOKIE_SECURE":        "true",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, 9090, cfg.Port)
				assert.Equal(t, "/var/lib/companion/prod.db", cfg.DBPath)
				assert.Equal(t, "/srv/www", cfg.StaticDir)
				assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
				assert.True(t, cfg.CookieSecure)
			},
		},
		{
			name: "session and token lifetimes",
			envVars: map[string]string{
				"SESSION_MAX_AGE":        "24h",
				"SESSION_PRUNE_INTERVAL": "15m",
				"TOKEN_TTL":              "30m",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
				assert.Equal(t, 15*time.Minute, cfg.Session.PruneInterval)
				assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
			},
		},
		{
			name: "login rate limit",
			envVars: map[string]string{
				"LOGIN_RATE":  "2.5",
				"LOGIN_BURST": "1",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, 2.5, cfg.Login.Rate)
				assert.Equal(t, 1, cfg.Login.Burst)
			},
		},
		{
			name: "log level",
			envVars: map[string]string{
				"LOG_LEVEL": "DEBUG",
			},
			expected: func(cfg *Config) {
				level, err := cfg.SlogLevel()
				require.NoError(t, err)
				assert.Equal(t, slog.LevelDebug, level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SESSION_SECRET", testSecret)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := NewConfig()
			require.NoError(t, err)
			tt.expected(cfg)
		})
	}
}

func TestNewConfig_Provider(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_SECRET", testSecret)
	setProvider(t)
	t.Setenv("AUTH_SCOPES", "openid,email")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.True(t, cfg.ProviderConfigured())
	assert.Equal(t, "client", cfg.Auth.ClientID)
	assert.Equal(t, "https://idp.example.com/userinfo", cfg.Auth.UserInfoURL)
	assert.Equal(t, []string{"openid", "email"}, cfg.Auth.Scopes)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantMsg string
	}{
		{
			name:    "missing secret",
			envVars: map[string]string{},
			wantMsg: "SESSION_SECRET",
		},
		{
			name:    "short secret",
			envVars: map[string]string{"SESSION_SECRET": "too-short"},
			wantMsg: "SESSION_SECRET",
		},
		{
			name:    "half configured provider",
			envVars: map[string]string{"SESSION_SECRET": testSecret, "AUTH_CLIENT_ID": "client"},
			wantMsg: "AUTH_CLIENT_SECRET",
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"SESSION_SECRET": testSecret, "LOG_LEVEL": "chatty"},
			wantMsg: "LOG_LEVEL",
		},
		{
			name:    "zero token ttl",
			envVars: map[string]string{"SESSION_SECRET": testSecret, "TOKEN_TTL": "0s"},
			wantMsg: "TOKEN_TTL",
		},
		{
			name:    "port not a number",
			envVars: map[string]string{"SESSION_SECRET": testSecret, "PORT": "eighty"},
			wantMsg: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_SecretLengthMatchesKeyDerivation(t *testing.T) {
	clearEnv(t)

	t.Setenv("SESSION_SECRET", strings.Repeat("s", auth.MinSecretLength-1))
	_, err := NewConfig()
	require.Error(t, err)

	secret := strings.Repeat("s", auth.MinSecretLength)
	t.Setenv("SESSION_SECRET", secret)
	cfg, err := NewConfig()
	require.NoError(t, err)

	_, err = auth.DeriveKeys(cfg.Session.Secret)
	assert.NoError(t, err, "any secret config accepts must be usable for key derivation")
}
