package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultProviderTimeout = 10 * time.Second

// ProviderConfig describes an external OAuth identity provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Exchanger completes the OAuth authorization-code flow against an
// identity provider and normalizes the returned profile. It keeps no
// state beyond its configuration; a failed exchange leaves nothing to
// unwind and is never retried internally.
type Exchanger struct {
	providers map[string]ProviderConfig
	client    *http.Client
}

// NewExchanger constructs an Exchanger with a bounded request timeout.
func NewExchanger(providers map[string]ProviderConfig, timeout time.Duration) *Exchanger {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Exchanger{
		providers: providers,
		client:    &http.Client{Timeout: timeout},
	}
}

// Providers lists the configured provider keys.
func (e *Exchanger) Providers() []string {
	keys := make([]string, 0, len(e.providers))
	for k := range e.providers {
		keys = append(keys, k)
	}
	return keys
}

// Exchange validates the authorization code against the provider's token
// endpoint and fetches the profile claims behind it.
func (e *Exchanger) Exchange(ctx context.Context, provider, code, redirectURI string) (ExternalProfile, error) {
	cfg, ok := e.providers[provider]
	if !ok {
		return ExternalProfile{}, fmt.Errorf("%w: unknown provider %q", ErrProviderRejected, provider)
	}
	if strings.TrimSpace(code) == "" {
		return ExternalProfile{}, fmt.Errorf("%w: empty authorization code", ErrProviderRejected)
	}

	accessToken, err := e.exchangeCode(ctx, cfg, code, redirectURI)
	if err != nil {
		return ExternalProfile{}, err
	}
	profile, err := e.fetchProfile(ctx, provider, cfg, accessToken)
	if err != nil {
		return ExternalProfile{}, err
	}
	if profile.ExternalID == "" {
		return ExternalProfile{}, fmt.Errorf("%w: profile missing subject", ErrProviderRejected)
	}
	return profile, nil
}

func (e *Exchanger) exchangeCode(ctx context.Context, cfg ProviderConfig, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrProviderRejected, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrProviderUnavailable, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: missing access token", ErrProviderRejected)
	}
	return payload.AccessToken, nil
}

func (e *Exchanger) fetchProfile(ctx context.Context, provider string, cfg ProviderConfig, accessToken string) (ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.UserInfoURL, nil)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return ExternalProfile{}, fmt.Errorf("%w: userinfo returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return ExternalProfile{}, fmt.Errorf("%w: userinfo returned %d", ErrProviderRejected, resp.StatusCode)
	}

	if strings.EqualFold(cfg.Name, "Google") {
		var payload struct {
			Sub     string `json:"sub"`
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return ExternalProfile{}, fmt.Errorf("%w: decode profile: %v", ErrProviderUnavailable, err)
		}
		return ExternalProfile{
			Provider:    provider,
			ExternalID:  payload.Sub,
			Email:       payload.Email,
			DisplayName: firstNonEmpty(payload.Name, payload.Email, payload.Sub),
			AvatarURL:   payload.Picture,
		}, nil
	}

	// GitHub-style profile shape.
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ExternalProfile{}, fmt.Errorf("%w: decode profile: %v", ErrProviderUnavailable, err)
	}
	return ExternalProfile{
		Provider:    provider,
		ExternalID:  formatNumericID(payload.ID),
		Email:       payload.Email,
		DisplayName: firstNonEmpty(payload.Name, payload.Login, payload.Email),
		AvatarURL:   payload.AvatarURL,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func formatNumericID(value int64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatInt(value, 10)
}
