// Package aesgcm seals credential values with AES-256-GCM.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the per-message nonce length in bytes.
	IVSize = 16
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// ErrInvalidKey is returned by New when the key is not KeySize bytes.
var ErrInvalidKey = errors.New("aesgcm: key must be 32 bytes")

// Compile-time interface satisfaction check.
var _ driven.Cipher = (*Cipher)(nil)

// Cipher is the AES-256-GCM implementation of the driven.Cipher port. The IV
// and tag are kept separate from the ciphertext in the sealed value.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCMWithNonceSize: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (model.EncryptedValue, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return model.EncryptedValue{}, fmt.Errorf("rand iv: %w", err)
	}

	// Seal produces ciphertext || tag.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - TagSize

	return model.EncryptedValue{
		IV:         hex.EncodeToString(iv),
		Ciphertext: hex.EncodeToString(sealed[:split]),
		AuthTag:    hex.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt opens a sealed value. Any malformed field or failed tag check
// returns an error matching model.ErrAuthentication.
func (c *Cipher) Decrypt(value model.EncryptedValue) (string, error) {
	iv, err := hex.DecodeString(value.IV)
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("decode iv: %w", model.ErrAuthentication)
	}
	tag, err := hex.DecodeString(value.AuthTag)
	if err != nil || len(tag) != TagSize {
		return "", fmt.Errorf("decode auth tag: %w", model.ErrAuthentication)
	}
	ciphertext, err := hex.DecodeString(value.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", model.ErrAuthentication)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", model.ErrAuthentication)
	}

	return string(plaintext), nil
}

// GenerateKey returns a random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("rand key: %w", err)
	}
	return key, nil
}
