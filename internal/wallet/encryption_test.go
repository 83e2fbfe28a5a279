package wallet

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

// fastParams returns minimal Argon2 cost so tests stay quick.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // KiB
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestSealOpenSeed_Roundtrip(t *testing.T) {
	seed := testSeedBytes(t)
	passphrase := []byte("strong-passphrase-123")

	sealed, err := SealSeed(seed, passphrase, fastParams())
	if err != nil {
		t.Fatalf("SealSeed() error: %v", err)
	}
	if want := sealBoxOff + len(seed) + chacha20poly1305.Overhead; len(sealed) != want {
		t.Errorf("sealed length = %d, want %d", len(sealed), want)
	}
	if sealed[0] != sealVersion {
		t.Errorf("version byte = %d, want %d", sealed[0], sealVersion)
	}

	opened, err := OpenSeed(sealed, passphrase)
	if err != nil {
		t.Fatalf("OpenSeed() error: %v", err)
	}
	if !bytes.Equal(opened, seed) {
		t.Error("opened seed does not match original")
	}
}

func TestSealSeed_FreshSaltAndNonce(t *testing.T) {
	seed := testSeedBytes(t)
	passphrase := []byte("pw")

	first, err := SealSeed(seed, passphrase, fastParams())
	if err != nil {
		t.Fatal(err)
	}
	second, err := SealSeed(seed, passphrase, fastParams())
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, second) {
		t.Error("sealing twice must produce different blobs")
	}
	for _, sealed := range [][]byte{first, second} {
		opened, err := OpenSeed(sealed, passphrase)
		if err != nil || !bytes.Equal(opened, seed) {
			t.Error("both blobs must open to the same seed")
		}
	}
}

func TestOpenSeed_ParamsReadFromBlob(t *testing.T) {
	// A blob sealed under non-default cost must open without the caller
	// knowing which cost was used.
	params := EncryptionParams{Memory: 128, Iterations: 2, Parallelism: 2}
	sealed, err := SealSeed([]byte("seed material"), []byte("pw"), params)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := OpenSeed(sealed, []byte("pw"))
	if err != nil {
		t.Fatalf("OpenSeed() error: %v", err)
	}
	if string(opened) != "seed material" {
		t.Errorf("opened = %q", opened)
	}
}

func TestOpenSeed_WrongPassphrase(t *testing.T) {
	sealed, err := SealSeed(testSeedBytes(t), []byte("correct"), fastParams())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSeed(sealed, []byte("wrong")); !errors.Is(err, ErrUnlock) {
		t.Errorf("error = %v, want ErrUnlock", err)
	}
}

func TestOpenSeed_Tampered(t *testing.T) {
	sealed, err := SealSeed(testSeedBytes(t), []byte("pw"), fastParams())
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := OpenSeed(sealed, []byte("pw")); !errors.Is(err, ErrUnlock) {
		t.Errorf("error = %v, want ErrUnlock for a corrupted tag", err)
	}
}

func TestOpenSeed_Truncated(t *testing.T) {
	if _, err := OpenSeed([]byte("too short"), []byte("pw")); err == nil {
		t.Error("a truncated blob must not open")
	}
}

func TestOpenSeed_UnknownVersion(t *testing.T) {
	sealed, err := SealSeed(testSeedBytes(t), []byte("pw"), fastParams())
	if err != nil {
		t.Fatal(err)
	}
	sealed[0] = 99
	if _, err := OpenSeed(sealed, []byte("pw")); err == nil {
		t.Error("an unknown blob version must be rejected")
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Memory != 64*1024 || p.Iterations != 3 || p.Parallelism != 4 {
		t.Errorf("DefaultParams() = %+v", p)
	}
}
