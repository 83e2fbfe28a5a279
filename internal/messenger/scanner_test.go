package messenger

import (
	"testing"

	"github.com/hushtx/hushtx/internal/inscription"
)

func TestScanInscriptions(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 50_000)

	script := inscription.EncodeScript(env.identity.Address(), "text/plain", []byte("hello chain"))
	built, err := env.builder.BuildInscriptionTx(script, inscription.OutputValue)
	if err != nil {
		t.Fatal(err)
	}
	env.source.addToHistory(env.identity.Address(), built.Tx, env.now.Unix())

	found, err := env.reader.ScanInscriptions(0)
	if err != nil {
		t.Fatalf("ScanInscriptions() error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("inscriptions = %d, want 1", len(found))
	}

	insc := found[0]
	if insc.TxID != built.TxID {
		t.Errorf("txid = %s, want %s", insc.TxID, built.TxID)
	}
	if insc.OutputIndex != 0 {
		t.Errorf("output index = %d, want 0", insc.OutputIndex)
	}
	if insc.ContentType != "text/plain" {
		t.Errorf("content type = %q", insc.ContentType)
	}
	if insc.Content.Kind != inscription.KindText || insc.Content.Text != "hello chain" {
		t.Errorf("content = %+v", insc.Content)
	}
	if insc.SizeBytes != len("hello chain") {
		t.Errorf("size = %d", insc.SizeBytes)
	}
}

func TestScanInscriptions_IgnoresOrdinaryOutputs(t *testing.T) {
	alice := newTestEnv(t)
	bob := newTestEnv(t)
	alice.fund(t, 10_000)

	// A message transaction has data and payment outputs but no one-satoshi
	// inscription envelope.
	deliver(t, alice, bob, asCounterparty("bob", bob.identity), "not an inscription")

	found, err := bob.reader.ScanInscriptions(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("inscriptions = %d, want 0", len(found))
	}
}

func TestScanInscriptions_ProfileClassification(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 50_000)

	payload := []byte(`{"p":"profile2","username":"ann"}`)
	script := inscription.EncodeScript(env.identity.Address(), "application/json", payload)
	built, err := env.builder.BuildInscriptionTx(script, inscription.OutputValue)
	if err != nil {
		t.Fatal(err)
	}
	env.source.addToHistory(env.identity.Address(), built.Tx, env.now.Unix())

	found, err := env.reader.ScanInscriptions(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("inscriptions = %d, want 1", len(found))
	}
	if found[0].Content.Kind != inscription.KindProfileV2 {
		t.Errorf("kind = %v, want profileV2", found[0].Content.Kind)
	}
	if found[0].Content.Profile == nil || found[0].Content.Profile.Username != "ann" {
		t.Error("profile fields should be parsed")
	}
}
