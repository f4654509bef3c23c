// ABOUTME: JWT session token issuing and verification for API requests
// ABOUTME: Uses HS256 signing with configurable secret and expiry duration

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWeakSecret   = errors.New("jwt secret too short")
)

// MinSecretLength is the minimum allowed signing secret length in bytes.
const MinSecretLength = 32

// DefaultTokenTTL is the token lifetime used when none is configured.
const DefaultTokenTTL = time.Hour

// Authority mints and verifies signed session tokens. Validity is purely a
// function of signature and expiry; nothing is persisted server-side and
// tokens cannot be revoked early.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthority creates a token authority with the given signing secret and
// token lifetime. A zero ttl selects DefaultTokenTTL.
func NewAuthority(secret []byte, ttl time.Duration) (*Authority, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &Authority{secret: secret, ttl: ttl}, nil
}

// Issue mints a new token for the given user ID with an absolute expiry a
// fixed duration from now.
func (a *Authority) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify validates the token and extracts the user ID from the "sub" claim.
// Expired tokens return ErrExpiredToken; everything else that fails returns
// an error wrapping ErrInvalidToken so callers can distinguish the two.
func (a *Authority) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return sub, nil
}
