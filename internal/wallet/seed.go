package wallet

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the BIP-39 master seed length in bytes. The seed exists
// only between keystore unlock and identity derivation; callers zero it
// once IdentityFromSeed returns.
const SeedSize = 64

// SeedFromMnemonic stretches a mnemonic (plus optional passphrase) into
// the master seed. Whitespace is normalized first so pasted mnemonics
// with line breaks or double spaces still resolve; the BIP-39 checksum is
// verified, so a mistyped word fails here instead of silently deriving an
// identity that owns nothing.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	normalized := strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return seed, nil
}
