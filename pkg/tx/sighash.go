package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/script"
)

// SigHashAllForkID is SIGHASH_ALL with the fork ID bit, the standard
// signature hash type on this chain.
const SigHashAllForkID uint32 = 0x41

// SigHash computes the BIP143-style fork-id signature hash for the input at
// idx, committing to the previous output's value and locking script.
func (t *Transaction) SigHash(idx int, prevValue uint64, prevScript []byte) ([]byte, error) {
	if idx < 0 || idx >= len(t.Inputs) {
		return nil, fmt.Errorf("input index %d out of range (have %d inputs)", idx, len(t.Inputs))
	}
	in := t.Inputs[idx]

	var prevouts []byte
	for _, i := range t.Inputs {
		prevouts = append(prevouts, i.PrevOut.TxID[:]...)
		prevouts = binary.LittleEndian.AppendUint32(prevouts, i.PrevOut.Index)
	}
	hashPrevouts := crypto.DoubleSHA256(prevouts)

	var sequences []byte
	for _, i := range t.Inputs {
		sequences = binary.LittleEndian.AppendUint32(sequences, i.Sequence)
	}
	hashSequence := crypto.DoubleSHA256(sequences)

	var outputs []byte
	for _, out := range t.Outputs {
		outputs = binary.LittleEndian.AppendUint64(outputs, out.Value)
		outputs = appendVarInt(outputs, uint64(len(out.LockScript)))
		outputs = append(outputs, out.LockScript...)
	}
	hashOutputs := crypto.DoubleSHA256(outputs)

	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, t.Version)
	buf = append(buf, hashPrevouts[:]...)
	buf = append(buf, hashSequence[:]...)
	buf = append(buf, in.PrevOut.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
	buf = appendVarInt(buf, uint64(len(prevScript)))
	buf = append(buf, prevScript...)
	buf = binary.LittleEndian.AppendUint64(buf, prevValue)
	buf = binary.LittleEndian.AppendUint32(buf, in.Sequence)
	buf = append(buf, hashOutputs[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, t.LockTime)
	buf = binary.LittleEndian.AppendUint32(buf, SigHashAllForkID)

	digest := crypto.DoubleSHA256(buf)
	return digest[:], nil
}

// SignInput signs the input at idx with the given key and installs the
// P2PKH unlocking script. prevValue and prevScript must describe the output
// being spent.
func (t *Transaction) SignInput(idx int, prevValue uint64, prevScript []byte, key *crypto.PrivateKey) error {
	digest, err := t.SigHash(idx, prevValue, prevScript)
	if err != nil {
		return err
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return fmt.Errorf("sign input %d: %w", idx, err)
	}
	// The sighash type byte rides at the end of the DER signature.
	sig = append(sig, byte(SigHashAllForkID))
	t.Inputs[idx].UnlockScript = script.Unlock(sig, key.PublicKey().SerializeCompressed())
	return nil
}
