// Package auth implements the session token codec: an HMAC-signed,
// time-bounded identity claim issued at login and verified on every
// protected request. Tokens are stateless; the server keeps no record
// of active sessions, so logout cannot revoke a token before expiry.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/threelizards/safe-variables/internal/common"
)

// DefaultSessionLifetime is the token validity configured out of the
// box.
const DefaultSessionLifetime = 7 * 24 * time.Hour

// Claims binds a user identity to an absolute expiry instant.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// TokenCodec signs and verifies session tokens with HS256.
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenCodec uses the lifetime as given; config validation is the
// gate against non-positive values reaching production.
func NewTokenCodec(secret []byte, lifetime time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, lifetime: lifetime}
}

// Issue mints a signed token for the given identity, valid for the
// configured lifetime from now.
func (c *TokenCodec) Issue(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		UserID: userID,
		Email:  email,
	})
	return token.SignedString(c.secret)
}

// Resolve verifies a token and returns its claims. Expired tokens yield
// common.ErrTokenExpired; any other failure (tampering, malformed
// input, wrong algorithm) yields common.ErrInvalidToken. Callers treat
// both as "no session".
func (c *TokenCodec) Resolve(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
