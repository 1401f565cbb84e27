// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sakif/treatment-companion/internal/auth"
)

// Config contains server configuration parameters.
type Config struct {
	Port               int           `env:"PORT" envDefault:"8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	DBPath             string        `env:"DB_PATH" envDefault:"data/companion.db"`
	StaticDir          string        `env:"STATIC_DIR"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"false"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	Session            Session       `envPrefix:"SESSION_"`
	Auth               Auth          `envPrefix:"AUTH_"`
	Login              Login         `envPrefix:"LOGIN_"`
}

// Session contains cookie session parameters. Secret is also the root
// key material for bearer tokens.
type Session struct {
	Secret        string        `env:"SECRET"`
	MaxAge        time.Duration `env:"MAX_AGE" envDefault:"168h"`
	PruneInterval time.Duration `env:"PRUNE_INTERVAL" envDefault:"1h"`
}

// Auth contains the OAuth2 identity provider parameters. All endpoints
// and credentials must be set together, or none of them.
type Auth struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthorizeURL string   `env:"AUTHORIZE_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserInfoURL  string   `env:"USERINFO_URL"`
	CallbackURL  string   `env:"CALLBACK_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Login contains the rate limit applied per client IP to the login routes.
type Login struct {
	Rate  float64 `env:"RATE" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"5"`
}

// NewConfig loads configuration from a .env file when present, then from
// environment variables, and validates the result.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Session.Secret) < auth.MinSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", auth.MinSecretLength))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE must be positive"))
	}
	if c.Session.PruneInterval <= 0 {
		errs = append(errs, errors.New("SESSION_PRUNE_INTERVAL must be positive"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Login.Rate <= 0 || c.Login.Burst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE and LOGIN_BURST must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if missing := c.Auth.missing(); len(missing) > 0 && len(missing) < 6 {
		errs = append(errs, fmt.Errorf("identity provider half configured, missing %s", strings.Join(missing, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ProviderConfigured reports whether an identity provider is set up.
func (c *Config) ProviderConfigured() bool {
	return len(c.Auth.missing()) == 0
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (a Auth) missing() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"AUTH_CLIENT_ID", a.ClientID},
		{"AUTH_CLIENT_SECRET", a.ClientSecret},
		{"AUTH_AUTHORIZE_URL", a.AuthorizeURL},
		{"AUTH_TOKEN_URL", a.TokenURL},
		{"AUTH_USERINFO_URL", a.UserInfoURL},
		{"AUTH_CALLBACK_URL", a.CallbackURL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
