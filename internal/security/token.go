package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// NewRandomString returns a URL-safe string built from n random bytes.
// Invite tokens use n=32, which yields a 43-char token.
func NewRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashInviteToken maps a raw invite token to the 64-char hex digest stored
// in the invites table. The raw token only ever appears in the emailed link.
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashRefreshToken digests a refresh token with a server-side pepper so a
// leaked sessions table cannot be replayed without the pepper.
func HashRefreshToken(token, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + token))
	return hex.EncodeToString(sum[:])
}

func NewCSRFToken() (string, error) {
	return NewRandomString(32)
}
