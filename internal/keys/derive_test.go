package keys

import (
	"bytes"
	"testing"

	"github.com/hushtx/hushtx/pkg/crypto"
)

func testKeyPair(t *testing.T) (*crypto.PrivateKey, *crypto.PublicKey) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return priv, priv.PublicKey()
}

func TestPubKeyPrefix(t *testing.T) {
	_, pub := testKeyPair(t)
	prefix := PubKeyPrefix(pub)
	if len(prefix) != 8 {
		t.Errorf("prefix length = %d, want 8", len(prefix))
	}
	if pub.Hex()[:8] != prefix {
		t.Error("prefix should be the first 8 hex chars of the compressed key")
	}
}

func TestDeriveConversationKey_SymmetricAcrossParties(t *testing.T) {
	// Alice encrypting to Bob scopes the hierarchy to Bob; Bob decrypting
	// passes Alice as the ECDH peer and himself as scope. Both must land on
	// the same key.
	alicePriv, alicePub := testKeyPair(t)
	bobPriv, bobPub := testKeyPair(t)

	aliceView := DeriveConversationKey(alicePriv, bobPub, bobPub)
	bobView := DeriveConversationKey(bobPriv, alicePub, bobPub)

	if aliceView != bobView {
		t.Error("sender and recipient must derive the same conversation key")
	}
	if DeriveConversationKey(alicePriv, bobPub, bobPub) != aliceView {
		t.Error("derivation should be deterministic")
	}
}

func TestDeriveConversationKey_ScopesIndependent(t *testing.T) {
	alicePriv, alicePub := testKeyPair(t)
	_, bobPub := testKeyPair(t)

	toBob := DeriveConversationKey(alicePriv, bobPub, bobPub)
	toSelf := DeriveConversationKey(alicePriv, bobPub, alicePub)

	if toBob == toSelf {
		t.Error("different scopes must produce different conversation keys")
	}
}

func TestDeriveDailyKey_DatesIndependent(t *testing.T) {
	priv, _ := testKeyPair(t)
	_, peer := testKeyPair(t)

	conv := DeriveConversationKey(priv, peer, peer)
	day1 := DeriveDailyKey(conv, peer, "2024-01-15")
	day2 := DeriveDailyKey(conv, peer, "2024-01-16")

	if day1 == day2 {
		t.Error("different dates should produce different daily keys")
	}
	if DeriveDailyKey(conv, peer, "2024-01-15") != day1 {
		t.Error("daily key derivation should be deterministic")
	}
}

func TestDeriveMessageKey_InvoicesIndependent(t *testing.T) {
	priv, _ := testKeyPair(t)
	_, peer := testKeyPair(t)

	conv := DeriveConversationKey(priv, peer, peer)
	daily := DeriveDailyKey(conv, peer, "2024-01-15")

	inv1 := "2-msg-2024-01-15-02b4632d-1"
	inv2 := "2-msg-2024-01-15-02b4632d-2"
	k1 := DeriveMessageKey(daily, peer, inv1)
	k2 := DeriveMessageKey(daily, peer, inv2)

	if k1 == k2 {
		t.Error("different invoice numbers should produce different message keys")
	}
}

func TestDeriveMessageKeyFull_MatchesStepwise(t *testing.T) {
	priv, _ := testKeyPair(t)
	_, peer := testKeyPair(t)
	invoice := "2-msg-2024-01-15-" + PubKeyPrefix(peer) + "-3"

	full, err := DeriveMessageKeyFull(priv, peer, peer, invoice)
	if err != nil {
		t.Fatalf("DeriveMessageKeyFull() error: %v", err)
	}

	conv := DeriveConversationKey(priv, peer, peer)
	daily := DeriveDailyKey(conv, peer, "2024-01-15")
	stepwise := DeriveMessageKey(daily, peer, invoice)

	if full != stepwise {
		t.Error("full re-derivation must match the stepwise chain")
	}
}

func TestDeriveMessageKeyFull_BothDirections(t *testing.T) {
	// Bob must be able to re-derive the key Alice used when encrypting to
	// him, from only his master key, Alice's public key, and the invoice.
	alicePriv, alicePub := testKeyPair(t)
	bobPriv, bobPub := testKeyPair(t)
	invoice := "2-msg-2024-01-15-" + PubKeyPrefix(bobPub) + "-1"

	aliceKey, err := DeriveMessageKeyFull(alicePriv, bobPub, bobPub, invoice)
	if err != nil {
		t.Fatal(err)
	}
	bobKey, err := DeriveMessageKeyFull(bobPriv, alicePub, bobPub, invoice)
	if err != nil {
		t.Fatal(err)
	}

	if aliceKey != bobKey {
		t.Error("sender and recipient must derive the same message key")
	}
}

func TestDeriveMessageKeyFull_MalformedInvoice(t *testing.T) {
	priv, _ := testKeyPair(t)
	_, peer := testKeyPair(t)

	for _, invoice := range []string{
		"",
		"garbage",
		"1-msg-2024-01-15-aabbccdd-1",  // wrong protocol prefix
		"2-msg-2024-01-15-aabbccdd",    // too few parts
		"2-msg-2024-01-15-aa-bb-cc-dd", // too many parts
	} {
		if _, err := DeriveMessageKeyFull(priv, peer, peer, invoice); err == nil {
			t.Errorf("DeriveMessageKeyFull(%q) should fail", invoice)
		}
	}
}

func TestHierarchyIsolation(t *testing.T) {
	// A leaked message key must not coincide with its parents.
	priv, _ := testKeyPair(t)
	_, peer := testKeyPair(t)

	conv := DeriveConversationKey(priv, peer, peer)
	daily := DeriveDailyKey(conv, peer, "2024-01-15")
	msg := DeriveMessageKey(daily, peer, "2-msg-2024-01-15-aabbccdd-1")

	if conv == daily || daily == msg || conv == msg {
		t.Error("hierarchy levels must be distinct keys")
	}
}

func TestLegacyKey(t *testing.T) {
	alicePriv, alicePub := testKeyPair(t)
	bobPriv, bobPub := testKeyPair(t)

	// Plain ECDH is symmetric: both sides compute the same key.
	k1 := LegacyKey(alicePriv, bobPub)
	k2 := LegacyKey(bobPriv, alicePub)
	if k1 != k2 {
		t.Error("legacy keys must agree on both sides")
	}

	// And it differs from the hierarchy root.
	conv := DeriveConversationKey(alicePriv, bobPub, bobPub)
	if bytes.Equal(k1.Bytes(), conv.Bytes()) {
		t.Error("legacy key must differ from the conversation key")
	}
}
