package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// GCMNonceSize is the AES-GCM nonce length prepended to every ciphertext.
const GCMNonceSize = 12

// GCMOverhead is the total ciphertext expansion: nonce plus the GCM tag.
const GCMOverhead = GCMNonceSize + 16

// Seal encrypts plaintext with AES-256-GCM under a 32-byte key.
// Output format: nonce(12) | ciphertext | tag(16).
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, GCMNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. Authentication failure (wrong key or
// tampered ciphertext) returns an error from the cipher.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < GCMOverhead {
		return nil, fmt.Errorf("ciphertext too short: %d bytes, need at least %d", len(sealed), GCMOverhead)
	}
	nonce, ciphertext := sealed[:GCMNonceSize], sealed[GCMNonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
