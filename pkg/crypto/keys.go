package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ErrInvalidKey is returned for malformed key material. Callers must treat
// it as fatal to the operation; no default key is ever substituted.
var ErrInvalidKey = errors.New("invalid key material")

// PrivateKey wraps a secp256k1 private key for ECDSA signing and ECDH.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: private key must be 32 bytes, got %d", ErrInvalidKey, len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("%w: zero private key", ErrInvalidKey)
	}
	return &PrivateKey{key: key}, nil
}

// Sign produces a DER-encoded ECDSA signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig := ecdsa.Sign(pk.key, hash)
	return sig.Serialize(), nil
}

// PublicKey returns the corresponding public key.
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// PublicKey wraps a secp256k1 public key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// ParsePublicKey parses a compressed or uncompressed public key.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	key, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &PublicKey{key: key}, nil
}

// SerializeCompressed returns the compressed 33-byte public key.
func (pub *PublicKey) SerializeCompressed() []byte {
	return pub.key.SerializeCompressed()
}

// Hex returns the compressed public key as lowercase hex.
func (pub *PublicKey) Hex() string {
	return fmt.Sprintf("%x", pub.key.SerializeCompressed())
}

// VerifySignature checks a DER-encoded ECDSA signature against a 32-byte
// hash and a serialized public key. Returns false on any error.
func VerifySignature(hash, signature, publicKey []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

// SharedSecret is the ECDH secret between a private key and a counterparty
// public key. It exposes exactly one canonical byte representation.
type SharedSecret struct {
	secret [32]byte
}

// ECDH computes the Diffie-Hellman shared secret. Both parties derive the
// identical secret from (ownPriv, theirPub) and (theirPriv, ownPub).
func ECDH(priv *PrivateKey, pub *PublicKey) SharedSecret {
	var s SharedSecret
	copy(s.secret[:], secp256k1.GenerateSharedSecret(priv.key, pub.key))
	return s
}

// Bytes returns a copy of the 32-byte shared secret.
func (s SharedSecret) Bytes() []byte {
	b := make([]byte, 32)
	copy(b, s.secret[:])
	return b
}
