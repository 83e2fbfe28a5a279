package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed-seed blob layout, integers little-endian:
//
//	version(1) | salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | box
//
// The KDF cost is stored with every blob so wallets sealed under old
// defaults keep unlocking after DefaultParams moves.
const (
	sealVersion = 1
	sealSaltLen = 32
	sealBoxOff  = 1 + sealSaltLen + 4 + 4 + 1 + chacha20poly1305.NonceSizeX
)

// ErrUnlock is returned when a sealed seed fails to open: wrong passphrase
// or a corrupted wallet file, indistinguishable by construction.
var ErrUnlock = errors.New("wrong passphrase or corrupted wallet file")

// EncryptionParams is the Argon2id cost for stretching the unlock
// passphrase into the seal key.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the cost for newly sealed wallets. 64 MiB over
// three passes keeps unlock around a second on desktop hardware.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
}

func (p EncryptionParams) sealKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, p.Iterations, p.Memory, p.Parallelism,
		chacha20poly1305.KeySize)
}

// SealSeed encrypts the wallet seed under a passphrase-derived key
// (Argon2id + XChaCha20-Poly1305) and returns the self-describing blob.
func SealSeed(seed, passphrase []byte, params EncryptionParams) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := params.sealKey(passphrase, salt)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init seal cipher: %w", err)
	}

	out := make([]byte, 0, sealBoxOff+len(seed)+chacha20poly1305.Overhead)
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Iterations)
	out = append(out, params.Parallelism)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, seed, nil), nil
}

// OpenSeed decrypts a blob produced by SealSeed, re-deriving the key from
// the cost parameters the blob itself carries.
func OpenSeed(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < sealBoxOff+chacha20poly1305.Overhead {
		return nil, errors.New("sealed seed truncated")
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("unsupported sealed seed version: %d", sealed[0])
	}

	salt := sealed[1 : 1+sealSaltLen]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[1+sealSaltLen:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[1+sealSaltLen+4:]),
		Parallelism: sealed[1+sealSaltLen+8],
	}
	nonce := sealed[1+sealSaltLen+9 : sealBoxOff]

	key := params.sealKey(passphrase, salt)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init seal cipher: %w", err)
	}
	seed, err := aead.Open(nil, nonce, sealed[sealBoxOff:], nil)
	if err != nil {
		return nil, ErrUnlock
	}
	return seed, nil
}

// wipe zeroes key material in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
