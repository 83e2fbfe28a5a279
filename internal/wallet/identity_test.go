package wallet

import (
	"bytes"
	"testing"
)

func TestIdentityFromSeed_Deterministic(t *testing.T) {
	seed := testSeed(t)

	id1, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed() error: %v", err)
	}
	id2, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed() error: %v", err)
	}

	if id1.Address() != id2.Address() {
		t.Error("same seed should produce same address")
	}
	if id1.PublicKey().Hex() != id2.PublicKey().Hex() {
		t.Error("same seed should produce same public key")
	}
}

func TestIdentityFromPrivateKey(t *testing.T) {
	raw := make([]byte, 32)
	raw[31] = 1

	id, err := IdentityFromPrivateKey(raw)
	if err != nil {
		t.Fatalf("IdentityFromPrivateKey() error: %v", err)
	}
	if id.Address().String() == "" {
		t.Error("identity should have an address")
	}

	// Same key, same identity.
	again, err := IdentityFromPrivateKey(raw)
	if err != nil {
		t.Fatal(err)
	}
	if id.Address() != again.Address() {
		t.Error("same private key should produce same address")
	}
}

func TestIdentityFromPrivateKey_Invalid(t *testing.T) {
	if _, err := IdentityFromPrivateKey(make([]byte, 32)); err == nil {
		t.Error("all-zero key should be rejected")
	}
	if _, err := IdentityFromPrivateKey([]byte{1, 2, 3}); err == nil {
		t.Error("short key should be rejected")
	}
}

func TestIdentity_StorageNamespace(t *testing.T) {
	id, err := IdentityFromSeed(testSeed(t))
	if err != nil {
		t.Fatal(err)
	}

	ns := id.StorageNamespace()
	if !bytes.HasPrefix(ns, []byte("wallet/")) {
		t.Errorf("namespace = %q, want wallet/ prefix", ns)
	}
	if !bytes.HasSuffix(ns, []byte("/")) {
		t.Errorf("namespace = %q, want trailing separator", ns)
	}

	// Different identity, different namespace.
	raw := make([]byte, 32)
	raw[31] = 7
	other, err := IdentityFromPrivateKey(raw)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ns, other.StorageNamespace()) {
		t.Error("different identities should get different namespaces")
	}
}
