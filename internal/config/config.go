// Package config loads bookstore-api settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the server settings.
type Config struct {
	Addr            string
	WebDir          string
	DatabaseURL     string
	Storage         string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSOrigins     []string
	LoginRatePerSec float64
	LogLevel        string
	LogFormat       string
	// ForwardAuth trusts the Remote-User header set by a fronting proxy.
	ForwardAuth bool
	OIDC        OIDC
}

// OIDC holds single sign-on settings. SSO is enabled when Issuer is set.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether SSO is configured.
func (o OIDC) Enabled() bool {
	return o.Issuer != ""
}

// Load reads an optional .env file (existing variables win) and then the
// environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:        env("ADDR", ":8080"),
		WebDir:      env("WEB_DIR", "web"),
		DatabaseURL: getenv("DATABASE_URL"),
		Storage:     strings.ToLower(env("STORAGE", StoragePostgres)),
		JWTSecret:   getenv("JWT_SECRET"),
		LogLevel:    env("LOG_LEVEL", "info"),
		LogFormat:   env("LOG_FORMAT", "json"),
		OIDC: OIDC{
			Issuer:       getenv("OIDC_ISSUER"),
			ClientID:     getenv("OIDC_CLIENT_ID"),
			ClientSecret: getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  getenv("OIDC_REDIRECT_URL"),
		},
	}

	var err error
	if cfg.AccessTokenTTL, err = duration(env("ACCESS_TOKEN_TTL", "15m")); err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = duration(env("REFRESH_TOKEN_TTL", "168h")); err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.LoginRatePerSec, err = strconv.ParseFloat(env("LOGIN_RATE_PER_SEC", "1"), 64); err != nil || cfg.LoginRatePerSec <= 0 {
		return Config{}, fmt.Errorf("LOGIN_RATE_PER_SEC must be a positive number")
	}
	if cfg.ForwardAuth, err = strconv.ParseBool(env("FORWARD_AUTH", "false")); err != nil {
		return Config{}, fmt.Errorf("FORWARD_AUTH: %w", err)
	}
	for _, o := range strings.Split(getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.OIDC.Enabled() && (cfg.OIDC.ClientID == "" || cfg.OIDC.RedirectURL == "") {
		return Config{}, errors.New("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER is set")
	}
	return cfg, nil
}

func duration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}
