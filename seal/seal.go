// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package seal encrypts vote payloads at rest with XChaCha20-Poly1305.
//
// A Keyring holds one active key used for sealing and any number of retired
// keys that are still accepted for opening. Each sealed value is stored next
// to the ID of the key that sealed it. The keyring is read-only after
// construction and safe for concurrent use.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrUnknownKey = errors.New("unknown sealing key")
	ErrMalformed  = errors.New("malformed sealed value")
	ErrBadKey     = errors.New("sealing key must be 32 bytes")
)

type Keyring struct {
	activeID string
	keys     map[string]cipher.AEAD
}

// New builds a keyring from raw key material.
func New(activeID string, activeKey []byte, retired map[string][]byte) (*Keyring, error) {
	if activeID == "" {
		return nil, errors.New("active key id is required")
	}
	k := &Keyring{activeID: activeID, keys: make(map[string]cipher.AEAD, len(retired)+1)}
	if err := k.add(activeID, activeKey); err != nil {
		return nil, err
	}
	for id, key := range retired {
		if id == activeID {
			return nil, fmt.Errorf("retired key %q collides with the active key", id)
		}
		if err := k.add(id, key); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// FromConfig parses base64 key material. retired has the form
// "id:base64,id:base64".
func FromConfig(activeID, activeKey, retired string) (*Keyring, error) {
	key, err := decodeKey(activeKey)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}

	old := map[string][]byte{}
	for _, entry := range strings.Split(retired, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, material, ok := strings.Cut(entry, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("retired key entry %q must be id:base64", entry)
		}
		b, err := decodeKey(material)
		if err != nil {
			return nil, fmt.Errorf("retired key %q: %w", id, err)
		}
		old[id] = b
	}

	return New(activeID, key, old)
}

// ActiveID returns the ID of the key used for sealing.
func (k *Keyring) ActiveID() string {
	return k.activeID
}

// Seal encrypts plaintext with the active key. ad is authenticated but not
// encrypted; it must be supplied again to Open.
func (k *Keyring) Seal(plaintext, ad []byte) (keyID, sealed string, err error) {
	aead := k.keys[k.activeID]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, ad)
	return k.activeID, base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a value sealed by any key in the ring.
func (k *Keyring) Open(keyID, sealed string, ad []byte) ([]byte, error) {
	aead, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrMalformed
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed value: %w", err)
	}
	return plaintext, nil
}

func (k *Keyring) add(id string, key []byte) error {
	if len(key) != chacha20poly1305.KeySize {
		return fmt.Errorf("%w (key %q has %d)", ErrBadKey, id, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("key %q: %w", id, err)
	}
	k.keys[id] = aead
	return nil
}

func decodeKey(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(b) != chacha20poly1305.KeySize {
		return nil, ErrBadKey
	}
	return b, nil
}
