// Package auth holds credential handling: password hashing, login sessions
// and signed password-reset tokens.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// ResetPurpose is the audience every reset token is bound to.
	ResetPurpose = "RESET"
	// ResetTokenMaxAge is how long a reset token stays valid after issue.
	ResetTokenMaxAge = 600 * time.Second
)

// TokenStatus is the outcome of inspecting a reset token.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenExpired
	// TokenMalformed covers bad encoding, bad signature and a wrong purpose.
	TokenMalformed
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// TokenCodec issues and verifies password-reset tokens signed with a process-wide secret.
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces time.Now; tests use it to simulate elapsed time.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// WithMaxAge overrides ResetTokenMaxAge.
func WithMaxAge(d time.Duration) TokenOption {
	return func(c *TokenCodec) { c.maxAge = d }
}

// NewTokenCodec returns a codec signing with secret.
func NewTokenCodec(secret string, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{
		secret: []byte(secret),
		maxAge: ResetTokenMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue returns a URL-safe token binding userID to the reset purpose.
func (c *TokenCodec) Issue(userID uint) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("reset token secret is empty")
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Audience:  jwt.ClaimStrings{ResetPurpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify returns the user id bound to token when it is authentic, carries the
// reset purpose and is not older than the max age. It never reports why a token failed.
func (c *TokenCodec) Verify(token string) (uint, bool) {
	id, status := c.Inspect(token)
	return id, status == TokenValid
}

// Inspect is Verify with the failure reason, for logging and metrics.
func (c *TokenCodec) Inspect(token string) (uint, TokenStatus) {
	if token == "" || len(c.secret) == 0 {
		return 0, TokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(ResetPurpose),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
		// exp is exclusive in the parser; the iat check below is the exact bound.
		jwt.WithLeeway(time.Second),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, TokenExpired
		}
		return 0, TokenMalformed
	}

	if claims.IssuedAt == nil {
		return 0, TokenMalformed
	}
	// iat carries whole seconds, so compare at that resolution on both sides.
	if c.now().Unix()-claims.IssuedAt.Unix() > int64(c.maxAge/time.Second) {
		return 0, TokenExpired
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, TokenMalformed
	}
	return uint(id), TokenValid
}
