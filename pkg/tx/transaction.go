// Package tx defines the transaction wire format, signing, and fee model.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/types"
)

// DefaultSequence is the final sequence number (no relative locktime).
const DefaultSequence uint32 = 0xffffffff

// Transaction represents a chain transaction in the Bitcoin wire format.
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// Input references a UTXO being spent.
type Input struct {
	PrevOut      types.Outpoint
	UnlockScript []byte
	Sequence     uint32
}

// Output defines a new UTXO.
type Output struct {
	Value      uint64
	LockScript []byte
}

// New creates an empty version-1 transaction.
func New() *Transaction {
	return &Transaction{Version: 1}
}

// AddInput appends an input spending prevOut with the default sequence.
func (t *Transaction) AddInput(prevOut types.Outpoint) {
	t.Inputs = append(t.Inputs, Input{PrevOut: prevOut, Sequence: DefaultSequence})
}

// AddOutput appends an output with the given value and locking script.
func (t *Transaction) AddOutput(value uint64, lockScript []byte) {
	t.Outputs = append(t.Outputs, Output{Value: value, LockScript: lockScript})
}

// Serialize returns the canonical wire encoding:
// version(4) | varint(inputs) | inputs | varint(outputs) | outputs | locktime(4).
func (t *Transaction) Serialize() []byte {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, t.Version)

	buf = appendVarInt(buf, uint64(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
		buf = appendVarInt(buf, uint64(len(in.UnlockScript)))
		buf = append(buf, in.UnlockScript...)
		buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	}

	buf = appendVarInt(buf, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = appendVarInt(buf, uint64(len(out.LockScript)))
		buf = append(buf, out.LockScript...)
	}

	return binary.LittleEndian.AppendUint32(buf, t.LockTime)
}

// Hex returns the serialized transaction as lowercase hex.
func (t *Transaction) Hex() string {
	return hex.EncodeToString(t.Serialize())
}

// Hash computes the transaction ID (double SHA-256 of the wire encoding).
func (t *Transaction) Hash() types.Hash {
	return crypto.DoubleSHA256(t.Serialize())
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range t.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// Deserialize parses a wire-encoded transaction. Used to recover output
// values and locking scripts from raw source transactions.
func Deserialize(raw []byte) (*Transaction, error) {
	r := &reader{buf: raw}
	t := &Transaction{}

	var err error
	if t.Version, err = r.uint32(); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}

	numIn, err := r.varInt()
	if err != nil {
		return nil, fmt.Errorf("read input count: %w", err)
	}
	for i := uint64(0); i < numIn; i++ {
		var in Input
		txid, err := r.bytes(types.HashSize)
		if err != nil {
			return nil, fmt.Errorf("read input %d txid: %w", i, err)
		}
		copy(in.PrevOut.TxID[:], txid)
		if in.PrevOut.Index, err = r.uint32(); err != nil {
			return nil, fmt.Errorf("read input %d index: %w", i, err)
		}
		scriptLen, err := r.varInt()
		if err != nil {
			return nil, fmt.Errorf("read input %d script length: %w", i, err)
		}
		if in.UnlockScript, err = r.bytes(int(scriptLen)); err != nil {
			return nil, fmt.Errorf("read input %d script: %w", i, err)
		}
		if in.Sequence, err = r.uint32(); err != nil {
			return nil, fmt.Errorf("read input %d sequence: %w", i, err)
		}
		t.Inputs = append(t.Inputs, in)
	}

	numOut, err := r.varInt()
	if err != nil {
		return nil, fmt.Errorf("read output count: %w", err)
	}
	for i := uint64(0); i < numOut; i++ {
		var out Output
		if out.Value, err = r.uint64(); err != nil {
			return nil, fmt.Errorf("read output %d value: %w", i, err)
		}
		scriptLen, err := r.varInt()
		if err != nil {
			return nil, fmt.Errorf("read output %d script length: %w", i, err)
		}
		if out.LockScript, err = r.bytes(int(scriptLen)); err != nil {
			return nil, fmt.Errorf("read output %d script: %w", i, err)
		}
		t.Outputs = append(t.Outputs, out)
	}

	if t.LockTime, err = r.uint32(); err != nil {
		return nil, fmt.Errorf("read locktime: %w", err)
	}
	return t, nil
}

// DeserializeHex parses a hex-encoded wire transaction.
func DeserializeHex(rawHex string) (*Transaction, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("decode tx hex: %w", err)
	}
	return Deserialize(raw)
}

// appendVarInt appends the Bitcoin variable-length integer encoding.
func appendVarInt(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		buf = append(buf, 0xfd)
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case n <= 0xffffffff:
		buf = append(buf, 0xfe)
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	default:
		buf = append(buf, 0xff)
		return binary.LittleEndian.AppendUint64(buf, n)
	}
}

// reader is a bounds-checked cursor over wire bytes.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("truncated at offset %d (need %d bytes)", r.pos, n)
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) varInt() (uint64, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	switch b[0] {
	case 0xfd:
		v, err := r.bytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(v)), nil
	case 0xfe:
		v, err := r.uint32()
		return uint64(v), err
	case 0xff:
		return r.uint64()
	default:
		return uint64(b[0]), nil
	}
}
