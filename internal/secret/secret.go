// Package secret seals provider API keys at rest.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrKeySize   = fmt.Errorf("sealing key must be %d bytes", chacha20poly1305.KeySize)
	ErrMalformed = errors.New("sealed value is malformed")
)

// Sealer encrypts short secrets with XChaCha20-Poly1305. The sealed form is
// base64(nonce || ciphertext). A Sealer is safe for concurrent use.
type Sealer struct {
	key []byte
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Sealer{key: k}, nil
}

// Seal encrypts plaintext. additional binds the ciphertext to its owner so a sealed
// value copied to another row fails to open.
func (s *Sealer) Seal(plaintext, additional string) (string, error) {
	const op = "secret.Seal"
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), []byte(additional))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, additional string) (string, error) {
	const op = "secret.Open"
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, []byte(additional))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(pt), nil
}

// Mask keeps the first three and last four characters of key.
// Keys too short to mask meaningfully are fully hidden.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}
