// Package secrets encrypts the LinkedIn access token at rest so a copied
// database file does not leak API credentials.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

// Box seals and opens secrets with a symmetric key.
type Box struct {
	key [keySize]byte
}

// NewBox creates a Box from a 32-byte key.
func NewBox(key []byte) (*Box, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	box := &Box{}
	copy(box.key[:], key)
	return box, nil
}

// NewBoxFromEnv reads the hex-encoded key from TOKEN_ENCRYPTION_KEY.
func NewBoxFromEnv() (*Box, error) {
	raw := os.Getenv("TOKEN_ENCRYPTION_KEY")
	if raw == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is required")
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	return NewBox(key)
}

// Seal encrypts the plaintext and returns a base64 string with the random
// nonce prepended.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	if len(sealed) < 24 {
		return "", fmt.Errorf("sealed value too short")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &b.key)
	if !ok {
		return "", fmt.Errorf("failed to decrypt value")
	}
	return string(plaintext), nil
}
