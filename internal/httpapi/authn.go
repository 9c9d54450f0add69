package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"posturewatch.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		account, claims, err := a.auth.VerifyWithClaims(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				writeError(w, r, http.StatusUnauthorized, "token expired")
			case errors.Is(err, auth.ErrRevokedToken):
				writeError(w, r, http.StatusUnauthorized, "token revoked")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithAccount(r.Context(), account)
		ctx = auth.ContextWithTokenID(ctx, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
