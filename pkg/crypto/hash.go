// Package crypto provides cryptographic primitives for the wallet.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160"

	"github.com/hushtx/hushtx/pkg/types"
)

// SHA256 computes a single SHA-256 hash of the input data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// DoubleSHA256 computes SHA256(SHA256(data)), the transaction and block
// hash function of the chain.
func DoubleSHA256(data []byte) types.Hash {
	first := sha256.Sum256(data)
	return types.Hash(sha256.Sum256(first[:]))
}

// Hash160 computes RIPEMD160(SHA256(data)), used for P2PKH addresses.
func Hash160(data []byte) []byte {
	first := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(first[:])
	return h.Sum(nil)
}

// AddressFromPubKey derives a P2PKH address from a compressed public key.
func AddressFromPubKey(pubKey []byte) types.Address {
	var addr types.Address
	copy(addr[:], Hash160(pubKey))
	return addr
}

// Checksum8 returns the first 8 hex characters of SHA-256(data). Message
// envelopes carry this as a cheap plaintext integrity tag.
func Checksum8(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:4])
}
