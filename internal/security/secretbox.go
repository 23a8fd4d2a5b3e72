package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const sealVersion = "v1"

var ErrInvalidSealedValue = errors.New("invalid sealed value")

// SecretBox seals profile credentials with AES-256-GCM. The wire form is
// "v1:<iv>:<ciphertext>:<tag>", all base64, so the IV and tag stay
// individually inspectable and the version can roll without a migration.
type SecretBox struct {
	aead cipher.AEAD
}

func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecretBox{aead: aead}, nil
}

func (b *SecretBox) Seal(plaintext string) (string, error) {
	iv := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - b.aead.Overhead()
	return strings.Join([]string{
		sealVersion,
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		base64.StdEncoding.EncodeToString(sealed[tagStart:]),
	}, ":"), nil
}

func (b *SecretBox) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, ":")
	if len(parts) != 4 || parts[0] != sealVersion {
		return "", ErrInvalidSealedValue
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(iv) != b.aead.NonceSize() {
		return "", ErrInvalidSealedValue
	}
	ct, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidSealedValue
	}
	tag, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(tag) != b.aead.Overhead() {
		return "", ErrInvalidSealedValue
	}
	plaintext, err := b.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", ErrInvalidSealedValue
	}
	return string(plaintext), nil
}
