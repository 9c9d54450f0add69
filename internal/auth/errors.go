package auth

import "errors"

var (
	// ErrProviderRejected indicates the identity provider refused the
	// authorization code (invalid, expired, or already consumed).
	ErrProviderRejected = errors.New("auth: provider rejected authorization code")
	// ErrProviderUnavailable indicates the identity provider could not be
	// reached or answered with a server error. The whole login attempt may
	// be retried by the caller.
	ErrProviderUnavailable = errors.New("auth: provider unavailable")

	// ErrInvalidToken indicates a malformed token or a bad signature.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken indicates a well-formed token past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")
	// ErrRevokedToken indicates the session behind the token was revoked.
	ErrRevokedToken = errors.New("auth: token revoked")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
)
