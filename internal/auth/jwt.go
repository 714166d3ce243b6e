// Package auth issues session tokens and decides who may change an item.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/model"
)

// Claims represents the JWT claims of a session.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Actor returns the identity the claims stand for.
func (c *Claims) Actor() *model.Actor {
	return &model.Actor{UserID: c.UserID, Username: c.Username}
}

// Tokens signs and verifies session tokens with an HMAC secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a token issuer for secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Generate creates a signed token for user that expires after ttl.
// Every token gets a unique ID so it can be revoked on logout.
func (t *Tokens) Generate(user *model.User, ttl time.Duration) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// Validate parses and verifies a token. Any failure is reported as
// model.ErrUnauthenticated.
func (t *Tokens) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%w: invalid token", model.ErrUnauthenticated)
	}

	return claims, nil
}

// IsExpired reports whether err is a token expiry failure.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
