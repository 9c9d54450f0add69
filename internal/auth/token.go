package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec signs and verifies compact bearer tokens (HS256 JWT). The signing
// key and issuer are fixed at construction time; there is no ambient
// mutable key state.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Claims is the fixed claim set carried by issued tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec for the given signing secret and issuer.
func NewCodec(secret, issuer string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	c := &Codec{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign issues a token for the given subject with the provided lifetime.
func (c *Codec) Sign(subject string, ttl time.Duration) (Token, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Token{}, errors.New("auth: subject is required")
	}
	if ttl <= 0 {
		return Token{}, errors.New("auth: ttl must be greater than zero")
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	tokenID := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// Decode verifies the token signature and required claims. Expired tokens
// fail with ErrExpiredToken, everything else with ErrInvalidToken.
func (c *Codec) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		// Pin the algorithm; anything other than HS256 is rejected outright.
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := c.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) validateClaims(claims *Claims) error {
	if claims.Issuer != c.issuer {
		return errors.New("unexpected issuer")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return errors.New("token id missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := c.now().UTC()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
