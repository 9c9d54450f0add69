package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"posturewatch.org/internal/audit"
	"posturewatch.org/internal/auth"
	"posturewatch.org/internal/obs"
)

type loginRequest struct {
	Provider    string `json:"provider"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type loginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Account     *auth.Account `json:"account"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		writeError(w, r, http.StatusBadRequest, "provider is required")
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	token, account, err := a.auth.LoginWithCode(r.Context(), provider, code, strings.TrimSpace(req.RedirectURI))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrProviderUnavailable):
			obs.CountLogin(provider, "unavailable")
			writeError(w, r, http.StatusServiceUnavailable, "identity provider unavailable")
		case errors.Is(err, auth.ErrProviderRejected):
			obs.CountLogin(provider, "rejected")
			writeError(w, r, http.StatusUnauthorized, "identity provider rejected the authorization code")
		default:
			obs.CountLogin(provider, "error")
			writeError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	obs.CountLogin(provider, "success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"provider":   provider,
		"account_id": account.ID,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token.Value,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt,
		Account:     account,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	tokenID, ok := auth.TokenIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := a.auth.Revoke(r.Context(), tokenID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"session_id": tokenID,
	})
	w.WriteHeader(http.StatusNoContent)
}
