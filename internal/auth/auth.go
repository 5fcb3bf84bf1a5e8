// Package auth carries the authenticated caller through request contexts and
// issues and verifies the bearer tokens that establish it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Caller is the identity bound to a request.
type Caller struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

type contextKey int

const callerKey contextKey = 0

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext returns the caller bound to ctx, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	if !ok || c.UID == "" {
		return Caller{}, false
	}
	return c, true
}

// Claims is the token payload. The subject is the caller's uid.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 caller tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer. A zero ttl issues tokens without expiry.
func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for c.
func (t *Tokens) Issue(c Caller) (string, error) {
	if c.UID == "" {
		return "", errors.New("caller uid is required")
	}
	now := t.now()
	claims := Claims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  c.UID,
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the caller it identifies.
func (t *Tokens) Verify(token string) (Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return Caller{}, fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return Caller{}, errors.New("token has no subject")
	}
	return Caller{UID: claims.Subject, Email: claims.Email}, nil
}
