package wallet

import (
	"fmt"

	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/types"
)

// Identity is the session's master key pair: the root of every derived
// message key and the owner of the wallet's single P2PKH address. Immutable
// for the session; replaced wholesale on key import.
type Identity struct {
	priv    *crypto.PrivateKey
	pub     *crypto.PublicKey
	address types.Address
}

// IdentityFromSeed derives the identity at m/44'/236'/0'/0/0.
func IdentityFromSeed(seed []byte) (*Identity, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DeriveAddress(0, ChangeExternal, 0)
	if err != nil {
		return nil, fmt.Errorf("derive identity key: %w", err)
	}
	signer, err := child.Signer()
	if err != nil {
		return nil, err
	}
	return &Identity{
		priv:    signer,
		pub:     signer.PublicKey(),
		address: child.Address(),
	}, nil
}

// IdentityFromPrivateKey builds an identity from a raw 32-byte private key
// (direct key import, no mnemonic).
func IdentityFromPrivateKey(b []byte) (*Identity, error) {
	priv, err := crypto.PrivateKeyFromBytes(b)
	if err != nil {
		return nil, err
	}
	pub := priv.PublicKey()
	return &Identity{
		priv:    priv,
		pub:     pub,
		address: crypto.AddressFromPubKey(pub.SerializeCompressed()),
	}, nil
}

// PrivateKey returns the master private key.
func (id *Identity) PrivateKey() *crypto.PrivateKey {
	return id.priv
}

// PublicKey returns the master public key.
func (id *Identity) PublicKey() *crypto.PublicKey {
	return id.pub
}

// Address returns the wallet's P2PKH address.
func (id *Identity) Address() types.Address {
	return id.address
}

// StorageNamespace returns the key prefix under which this wallet's state
// lives in the shared store, derived from the address string.
func (id *Identity) StorageNamespace() []byte {
	addr := id.address.String()
	if len(addr) > 12 {
		addr = addr[:12]
	}
	return []byte("wallet/" + addr + "/")
}

// Zero destroys the private key material.
func (id *Identity) Zero() {
	id.priv.Zero()
}
