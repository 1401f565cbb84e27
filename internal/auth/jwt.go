// Package auth establishes who is calling the API.
//
// A caller is identified either by a server-side session (browser clients,
// opened by the OAuth2 login flow) or by a bearer JWT (non-browser clients,
// issued to an already signed-in user). Gate checks both, in that order, and
// puts the user id in the request context. Handlers read it back with
// UserIDFromContext and never take an owner id from the request body.
//
// All key material is derived from one secret; see DeriveKeys.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "treatment-companion"

// TokenService handles bearer JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService signing with key. Tokens from
// Generate live for ttl.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) < 32 {
		return nil, errors.New("auth: token key must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	return &TokenService{secret: key, ttl: ttl}, nil
}

// claims is the JWT payload. "sub" carries the user id.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token for userID with the configured lifetime and
// returns it along with its expiry.
func (s *TokenService) Generate(userID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)
	token, err := s.sign(userID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.sign(userID, time.Now().Add(d))
}

func (s *TokenService) sign(userID string, expiresAt time.Time) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot sign a token without a subject")
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// The signature, expiry, issuer and algorithm are all checked. Pinning the
// algorithm to HS256 rejects "none" and RS/HS confusion tokens.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
