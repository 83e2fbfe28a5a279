// Package wallet implements the HD identity, encrypted keystore, contact
// book, and UTXO selection.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Supported mnemonic entropy sizes.
const (
	MnemonicEntropy12Words = 128
	MnemonicEntropy24Words = 256
)

// GenerateMnemonic creates a new BIP-39 mnemonic of 12 or 24 words.
func GenerateMnemonic(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = MnemonicEntropy12Words
	case 24:
		bits = MnemonicEntropy24Words
	default:
		return "", fmt.Errorf("mnemonic must be 12 or 24 words, got %d", words)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
