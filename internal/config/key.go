package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// KeySource records where the vault key came from.
type KeySource string

const (
	// KeySourceEnv means the key was supplied through MC_ENCRYPTION_KEY.
	KeySourceEnv KeySource = "env"
	// KeySourceDerived means the key was derived from the hostname. Anyone who
	// knows the hostname can recompute it, so it is only fit for development.
	KeySourceDerived KeySource = "derived"
)

const (
	keySize     = 32
	derivedSalt = "mission-control-salt"
)

// ErrNoEncryptionKey is returned when no key is configured and the derived
// fallback has not been allowed.
var ErrNoEncryptionKey = errors.New("MC_ENCRYPTION_KEY is not set; set it to 64 hex characters or set MC_ALLOW_DERIVED_KEY=true for development")

// hostname is swapped out in tests.
var hostname = os.Hostname

// ParseKey decodes a 64-character hex string into a 32-byte key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("MC_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("MC_ENCRYPTION_KEY must decode to %d bytes, got %d", keySize, len(key))
	}
	return key, nil
}

// DeriveHostKey derives a key from the machine hostname with scrypt.
func DeriveHostKey() ([]byte, error) {
	host, err := hostname()
	if err != nil {
		return nil, fmt.Errorf("read hostname: %w", err)
	}
	key, err := scrypt.Key([]byte(host), []byte(derivedSalt), 16384, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func resolveKey(raw string, allowDerived bool) ([]byte, KeySource, error) {
	if strings.TrimSpace(raw) != "" {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, "", err
		}
		return key, KeySourceEnv, nil
	}

	if !allowDerived {
		return nil, "", ErrNoEncryptionKey
	}

	key, err := DeriveHostKey()
	if err != nil {
		return nil, "", err
	}
	return key, KeySourceDerived, nil
}
