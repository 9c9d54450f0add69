package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Provider describes an external OAuth identity provider consumed during login.
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Config is loaded once at startup and treated as immutable afterwards.
type Config struct {
	Addr     string
	GRPCAddr string

	PGDSN    string
	RedisURL string

	AuthSecret string
	Issuer     string
	TokenTTL   time.Duration

	DeviationThreshold float64
	// AccountThresholds overrides the global threshold per account id.
	AccountThresholds map[string]float64

	Providers map[string]Provider

	ProviderTimeout time.Duration
	MaxBodyBytes    int64
	RateLimitPerSec int
	RateLimitBurst  int
}

type rawEnv struct {
	Addr     string `env:"POSTUREWATCH_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"POSTUREWATCH_GRPC_ADDR"`

	PGDSN    string `env:"POSTUREWATCH_PG_DSN"`
	RedisURL string `env:"POSTUREWATCH_REDIS_URL"`

	AuthSecret string        `env:"POSTUREWATCH_AUTH_SECRET"`
	Issuer     string        `env:"POSTUREWATCH_ISSUER" envDefault:"posturewatch"`
	TokenTTL   time.Duration `env:"POSTUREWATCH_TOKEN_TTL" envDefault:"30m"`

	DeviationThreshold float64 `env:"POSTUREWATCH_DEVIATION_THRESHOLD" envDefault:"0.12"`
	AccountThresholds  string  `env:"POSTUREWATCH_ACCOUNT_THRESHOLDS"`

	GoogleClientID     string   `env:"POSTUREWATCH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"POSTUREWATCH_GOOGLE_CLIENT_SECRET"`
	GoogleScopes       []string `env:"POSTUREWATCH_GOOGLE_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	GitHubClientID     string   `env:"POSTUREWATCH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string   `env:"POSTUREWATCH_GITHUB_CLIENT_SECRET"`
	GitHubScopes       []string `env:"POSTUREWATCH_GITHUB_SCOPES" envSeparator:"," envDefault:"read:user,user:email"`

	ProviderTimeout time.Duration `env:"POSTUREWATCH_PROVIDER_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"POSTUREWATCH_MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitPerSec int           `env:"POSTUREWATCH_RATE_LIMIT_PER_SEC" envDefault:"20"`
	RateLimitBurst  int           `env:"POSTUREWATCH_RATE_LIMIT_BURST" envDefault:"40"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		Addr:               raw.Addr,
		GRPCAddr:           raw.GRPCAddr,
		PGDSN:              raw.PGDSN,
		RedisURL:           raw.RedisURL,
		AuthSecret:         raw.AuthSecret,
		Issuer:             raw.Issuer,
		TokenTTL:           raw.TokenTTL,
		DeviationThreshold: raw.DeviationThreshold,
		ProviderTimeout:    raw.ProviderTimeout,
		MaxBodyBytes:       raw.MaxBodyBytes,
		RateLimitPerSec:    raw.RateLimitPerSec,
		RateLimitBurst:     raw.RateLimitBurst,
		Providers:          map[string]Provider{},
	}

	if thresholds := strings.TrimSpace(raw.AccountThresholds); thresholds != "" {
		overrides := map[string]float64{}
		if err := json.Unmarshal([]byte(thresholds), &overrides); err != nil {
			return Config{}, fmt.Errorf("parse account thresholds: %w", err)
		}
		cfg.AccountThresholds = overrides
	}

	if raw.GoogleClientID != "" {
		cfg.Providers["google"] = Provider{
			Name:         "Google",
			ClientID:     raw.GoogleClientID,
			ClientSecret: raw.GoogleClientSecret,
			AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:       raw.GoogleScopes,
		}
	}
	if raw.GitHubClientID != "" {
		cfg.Providers["github"] = Provider{
			Name:         "GitHub",
			ClientID:     raw.GitHubClientID,
			ClientSecret: raw.GitHubClientSecret,
			AuthURL:      "https://github.com/login/oauth/authorize",
			TokenURL:     "https://github.com/login/oauth/access_token",
			UserInfoURL:  "https://api.github.com/user",
			Scopes:       raw.GitHubScopes,
		}
	}

	return cfg, nil
}
