package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
)

// Environment is the deployment stage, read from NODE_ENV.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// DevAuthSecret signs sessions outside production when AUTH_SECRET is unset.
const DevAuthSecret = "dev-only-auth-secret-do-not-use-in-production"

// Config is the application configuration, read from the environment once
// at startup.
type Config struct {
	Env         Environment `env:"NODE_ENV,required,notEmpty" json:"NODE_ENV"`
	DatabaseURL string      `env:"DATABASE_URL,required,notEmpty" json:"DATABASE_URL"`
	BaseURL     string      `env:"BASE_URL" envDefault:"http://localhost:3000" json:"BASE_URL"`
	HTTPAddr    string      `env:"HTTP_ADDR" envDefault:":3000" json:"HTTP_ADDR"`
	LogLevel    string      `env:"LOG_LEVEL" json:"LOG_LEVEL"`

	DatabaseMaxConns int `env:"DATABASE_MAX_CONNS" envDefault:"10" json:"DATABASE_MAX_CONNS"`

	AuthSecret               string `env:"AUTH_SECRET" json:"AUTH_SECRET"`
	AuthTokenExpirationHours int    `env:"AUTH_TOKEN_EXPIRATION_HOURS" envDefault:"24" json:"AUTH_TOKEN_EXPIRATION_HOURS"`
	AuthCookieName           string `env:"AUTH_COOKIE_NAME" envDefault:"session" json:"AUTH_COOKIE_NAME"`
	AuthIssuer               string `env:"AUTH_ISSUER" envDefault:"go-starter" json:"AUTH_ISSUER"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID" json:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET" json:"GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" json:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" json:"GOOGLE_CLIENT_SECRET"`

	ThemeStorageKey string `env:"THEME_STORAGE_KEY" envDefault:"vite-ui-theme" json:"THEME_STORAGE_KEY"`
	ThemeDefault    string `env:"THEME_DEFAULT" envDefault:"system" json:"THEME_DEFAULT"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads vars instead of the process environment when vars is not nil.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}

	opts := env.Options{}
	if vars != nil {
		opts.Environment = vars
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse environment").
			WithTextCode("CONFIG_PARSE")
	}

	cfg.Env = Environment(strings.ToLower(strings.TrimSpace(string(cfg.Env))))
	if cfg.AuthSecret == "" && cfg.Env != Production {
		cfg.AuthSecret = DevAuthSecret
	}

	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}

	return cfg, nil
}

// Validate checks every value. The returned error carries a field map.
func (c Config) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Env,
				validation.Required,
				validation.In(Development, Test, Production).Error("must be one of development, test or production"),
			),
			validation.Field(&c.DatabaseURL, validation.Required, validation.By(connectionURL)),
			validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
			validation.Field(&c.HTTPAddr, validation.Required),
			validation.Field(&c.DatabaseMaxConns, validation.Min(1)),
			validation.Field(&c.AuthSecret,
				validation.Required.Error("is required in production"),
				validation.Length(32, 0),
			),
			validation.Field(&c.AuthTokenExpirationHours, validation.Min(1)),
			validation.Field(&c.AuthCookieName, validation.Required),
			validation.Field(&c.ThemeDefault, validation.In("dark", "light", "system")),
		)
	}, "invalid environment configuration")
}

func (c Config) IsProduction() bool {
	return c.Env == Production
}

func (c Config) IsDevelopment() bool {
	return c.Env == Development
}

// SecureCookies is true when the app is served over https.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.BaseURL), "https://")
}

func (c Config) TokenExpiration() time.Duration {
	return time.Duration(c.AuthTokenExpirationHours) * time.Hour
}

func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// CallbackURL is the absolute OAuth callback for provider.
func (c Config) CallbackURL(provider string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/social/" + provider + "/callback"
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	out := c
	out.DatabaseURL = redactURL(c.DatabaseURL)
	if out.AuthSecret != "" {
		out.AuthSecret = "****"
	}
	if out.GitHubClientSecret != "" {
		out.GitHubClientSecret = "****"
	}
	if out.GoogleClientSecret != "" {
		out.GoogleClientSecret = "****"
	}
	return out
}

func connectionURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme == "" || (u.Host == "" && u.Opaque == "" && u.Path == "") {
		return fmt.Errorf("must be a valid URL")
	}
	return nil
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("must be a valid http(s) URL")
	}
	return nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
