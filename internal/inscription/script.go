// Package inscription encodes and decodes content-addressed inscription
// outputs: a spendable P2PKH prefix followed by a conditional branch that
// embeds a content type and payload directly in the locking script.
package inscription

import (
	"bytes"

	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/types"
)

// envelopeTag marks the inscription branch inside the locking script.
var envelopeTag = []byte("ord")

// p2pkhLen is the fixed length of the P2PKH locking prefix.
const p2pkhLen = 25

// OutputValue is the value of an inscription output: the chain's minimal
// spendable unit. The output is both the marker and the carrier.
const OutputValue uint64 = 1

// EncodeScript builds the inscription locking script:
// P2PKH(addr) OP_IF "ord" OP_TRUE <contentType> OP_FALSE <payload> OP_ENDIF.
// Payload pushes use minimal push encoding, so large images take the
// PUSHDATA2/PUSHDATA4 classes automatically.
func EncodeScript(addr types.Address, contentType string, payload []byte) []byte {
	s := script.P2PKH(addr)
	s = append(s, script.OpIf)
	s = script.AppendPush(s, envelopeTag)
	s = append(s, script.OpTrue)
	s = script.AppendPush(s, []byte(contentType))
	s = append(s, script.OpFalse)
	s = script.AppendPush(s, payload)
	return append(s, script.OpEndIf)
}

// ParseScript is the inverse of EncodeScript. ok is false for scripts that
// don't match the envelope pattern; most on-chain scripts are not
// inscriptions, so a mismatch is not an error.
func ParseScript(lockScript []byte) (contentType string, payload []byte, ok bool) {
	if len(lockScript) <= p2pkhLen {
		return "", nil, false
	}
	if _, isP2PKH := script.ParseP2PKH(lockScript[:p2pkhLen]); !isP2PKH {
		return "", nil, false
	}

	pos := p2pkhLen
	if lockScript[pos] != script.OpIf {
		return "", nil, false
	}
	pos++

	tag, pos, pushOK := script.ReadPush(lockScript, pos)
	if !pushOK || !bytes.Equal(tag, envelopeTag) {
		return "", nil, false
	}
	if pos >= len(lockScript) || lockScript[pos] != script.OpTrue {
		return "", nil, false
	}
	pos++

	ct, pos, pushOK := script.ReadPush(lockScript, pos)
	if !pushOK {
		return "", nil, false
	}
	if pos >= len(lockScript) || lockScript[pos] != script.OpFalse {
		return "", nil, false
	}
	pos++

	data, pos, pushOK := script.ReadPush(lockScript, pos)
	if !pushOK || pos >= len(lockScript) || lockScript[pos] != script.OpEndIf {
		return "", nil, false
	}

	return string(ct), data, true
}

// OwnerAddress extracts the P2PKH address from an inscription script.
func OwnerAddress(lockScript []byte) (types.Address, bool) {
	if len(lockScript) < p2pkhLen {
		return types.Address{}, false
	}
	return script.ParseP2PKH(lockScript[:p2pkhLen])
}
