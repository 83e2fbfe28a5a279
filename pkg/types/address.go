package types

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressSize is the length of an address payload (public key hash) in bytes.
const AddressSize = 20

// Base58check version bytes for P2PKH addresses.
const (
	MainnetVersion byte = 0x00
	TestnetVersion byte = 0x6f
)

// activeVersion is the address version byte used by String() and
// MarshalJSON(). Set once at startup via SetAddressVersion().
var activeVersion = MainnetVersion

// SetAddressVersion sets the active address version byte (call once at startup).
func SetAddressVersion(v byte) {
	activeVersion = v
}

// GetAddressVersion returns the currently active address version byte.
func GetAddressVersion() byte {
	return activeVersion
}

// Address represents a 160-bit public key hash.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the base58check-encoded address (e.g. "1A1zP1...").
func (a Address) String() string {
	return base58.CheckEncode(a[:], activeVersion)
}

// Bytes returns a copy of the raw 20-byte public key hash.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as a base58check string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a base58check string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a base58check address string. The version byte must
// match either the mainnet or testnet P2PKH version.
func ParseAddress(s string) (Address, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode address %q: %w", s, err)
	}
	if version != MainnetVersion && version != TestnetVersion {
		return Address{}, fmt.Errorf("unsupported address version 0x%02x", version)
	}
	if len(payload) != AddressSize {
		return Address{}, fmt.Errorf("address payload must be %d bytes, got %d", AddressSize, len(payload))
	}
	var a Address
	copy(a[:], payload)
	return a, nil
}
