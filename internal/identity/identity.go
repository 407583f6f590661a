// Package identity verifies sessions issued by the external identity provider
// and forwards account requests to it.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/invoicer/internal/config"
)

var (
	ErrMissingToken  = errors.New("missing_token")
	ErrInvalidToken  = errors.New("invalid_token")
	ErrNotConfigured = errors.New("identity_not_configured")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrUnavailable   = errors.New("identity_unavailable")
)

// Claims are the fields read from a provider-issued access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens against the shared secret.
type Verifier struct {
	disabled bool
	secret   []byte
	issuer   string
	leeway   time.Duration
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	v := &Verifier{
		disabled: cfg.Auth.Disabled,
		secret:   []byte(cfg.Auth.JWTSecret),
		issuer:   cfg.Auth.Issuer,
		leeway:   30 * time.Second,
	}
	if !v.disabled && len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: AUTH_JWT_SECRET is required when auth is enabled", ErrNotConfigured)
	}
	return v, nil
}

// Disabled reports whether requests pass without a token.
func (v *Verifier) Disabled() bool {
	return v == nil || v.disabled
}

// Verify parses the raw token and returns its claims.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
