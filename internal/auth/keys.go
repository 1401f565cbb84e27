package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest SESSION_SECRET the server accepts.
const MinSecretLength = 32

// Keys is the key material derived from the single configured secret.
//
// Each key comes from its own HKDF "info" label, so leaking one (say, a
// cookie key through a misconfigured proxy) says nothing about the others.
type Keys struct {
	Token       []byte // HS256 signing key for bearer tokens
	CookieHash  []byte // HMAC key for the session cookie
	CookieBlock []byte // AES-256 key for the session cookie
}

// DeriveKeys expands secret into the three keys the server needs.
func DeriveKeys(secret string) (*Keys, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: secret must be at least %d characters", MinSecretLength)
	}

	token, err := derive(secret, "treatment-companion/token")
	if err != nil {
		return nil, err
	}
	hashKey, err := derive(secret, "treatment-companion/cookie-hash")
	if err != nil {
		return nil, err
	}
	blockKey, err := derive(secret, "treatment-companion/cookie-block")
	if err != nil {
		return nil, err
	}

	return &Keys{Token: token, CookieHash: hashKey, CookieBlock: blockKey}, nil
}

func derive(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("auth: deriving %s key: %w", info, err)
	}
	return key, nil
}
