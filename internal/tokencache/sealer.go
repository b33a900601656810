package tokencache

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errUnseal = errors.New("token record could not be opened")

// Sealer encrypts token records at rest with a key bound to the
// application's credentials.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the sealing key from the API secret, salted with the
// API key.
func NewSealer(apiKey, apiSecret string) (*Sealer, error) {
	if apiSecret == "" {
		return nil, errors.New("an API secret is required to seal tokens")
	}
	s := &Sealer{}
	r := hkdf.New(sha256.New, []byte(apiSecret), []byte(apiKey), []byte("flickrapi token cache"))
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
	return s, nil
}

// Seal encrypts plaintext under a fresh random nonce
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a value produced by Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errUnseal
	}
	return out, nil
}
