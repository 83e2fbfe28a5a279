package tx

import (
	"bytes"
	"testing"

	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/types"
)

func sampleTx() *Transaction {
	t := New()
	var prev types.Hash
	prev[0] = 0xaa
	t.AddInput(types.Outpoint{TxID: prev, Index: 3})

	var addr types.Address
	addr[0] = 0x01
	t.AddOutput(1000, script.P2PKH(addr))
	t.AddOutput(546, script.P2PKH(addr))
	return t
}

func TestTransaction_SerializeDeserialize(t *testing.T) {
	original := sampleTx()
	original.Inputs[0].UnlockScript = []byte{0x01, 0x02, 0x03}

	wire := original.Serialize()
	parsed, err := Deserialize(wire)
	if err != nil {
		t.Fatalf("Deserialize() error: %v", err)
	}

	if parsed.Version != original.Version || parsed.LockTime != original.LockTime {
		t.Error("header fields did not survive the round trip")
	}
	if len(parsed.Inputs) != 1 || len(parsed.Outputs) != 2 {
		t.Fatalf("counts = %d in / %d out", len(parsed.Inputs), len(parsed.Outputs))
	}
	if parsed.Inputs[0].PrevOut != original.Inputs[0].PrevOut {
		t.Error("outpoint mismatch")
	}
	if !bytes.Equal(parsed.Inputs[0].UnlockScript, original.Inputs[0].UnlockScript) {
		t.Error("unlock script mismatch")
	}
	if parsed.Inputs[0].Sequence != DefaultSequence {
		t.Error("sequence mismatch")
	}
	if parsed.Outputs[0].Value != 1000 || parsed.Outputs[1].Value != 546 {
		t.Error("output values mismatch")
	}
	if !bytes.Equal(parsed.Serialize(), wire) {
		t.Error("re-serialization should be byte-identical")
	}
}

func TestTransaction_HexRoundtrip(t *testing.T) {
	original := sampleTx()
	parsed, err := DeserializeHex(original.Hex())
	if err != nil {
		t.Fatalf("DeserializeHex() error: %v", err)
	}
	if parsed.Hex() != original.Hex() {
		t.Error("hex round trip mismatch")
	}
}

func TestDeserialize_Truncated(t *testing.T) {
	wire := sampleTx().Serialize()
	for _, cut := range []int{0, 1, 4, 10, len(wire) - 1} {
		if _, err := Deserialize(wire[:cut]); err == nil {
			t.Errorf("Deserialize() of %d/%d bytes should fail", cut, len(wire))
		}
	}
}

func TestDeserializeHex_BadHex(t *testing.T) {
	if _, err := DeserializeHex("zz"); err == nil {
		t.Error("non-hex input should fail")
	}
}

func TestTransaction_HashDeterministic(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	if a.Hash() != b.Hash() {
		t.Error("identical transactions must hash identically")
	}

	b.Outputs[0].Value++
	if a.Hash() == b.Hash() {
		t.Error("any byte change must change the txid")
	}
}

func TestTransaction_TotalOutputValue(t *testing.T) {
	tr := sampleTx()
	total, err := tr.TotalOutputValue()
	if err != nil {
		t.Fatal(err)
	}
	if total != 1546 {
		t.Errorf("total = %d, want 1546", total)
	}

	tr.AddOutput(^uint64(0), nil)
	if _, err := tr.TotalOutputValue(); err == nil {
		t.Error("overflow should be reported")
	}
}

func TestVarInt_Boundaries(t *testing.T) {
	cases := []struct {
		n    uint64
		size int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xffff, 3},
		{0x10000, 5},
		{0xffffffff, 5},
		{0x100000000, 9},
	}
	for _, tc := range cases {
		encoded := appendVarInt(nil, tc.n)
		if len(encoded) != tc.size {
			t.Errorf("appendVarInt(%#x) length = %d, want %d", tc.n, len(encoded), tc.size)
		}
		r := &reader{buf: encoded}
		got, err := r.varInt()
		if err != nil {
			t.Errorf("varInt(%#x) error: %v", tc.n, err)
			continue
		}
		if got != tc.n {
			t.Errorf("varInt round trip: got %#x, want %#x", got, tc.n)
		}
	}
}
