// Package script builds and parses locking/unlocking scripts.
package script

import (
	"encoding/binary"

	"github.com/hushtx/hushtx/pkg/types"
)

// Script opcodes used by this wallet.
const (
	OpFalse       = 0x00
	OpPushData1   = 0x4c
	OpPushData2   = 0x4d
	OpPushData4   = 0x4e
	OpTrue        = 0x51
	OpIf          = 0x63
	OpEndIf       = 0x68
	OpReturn      = 0x6a
	OpDup         = 0x76
	OpEqualVerify = 0x88
	OpHash160     = 0xa9
	OpCheckSig    = 0xac
)

// maxDirectPush is the largest payload encodable as a bare length byte.
const maxDirectPush = 75

// AppendPush appends data to script using the minimal push encoding:
// direct push for lengths <= 75, OP_PUSHDATA1 <= 255, OP_PUSHDATA2 <= 65535,
// OP_PUSHDATA4 otherwise.
func AppendPush(script, data []byte) []byte {
	n := len(data)
	switch {
	case n <= maxDirectPush:
		script = append(script, byte(n))
	case n <= 0xff:
		script = append(script, OpPushData1, byte(n))
	case n <= 0xffff:
		script = append(script, OpPushData2)
		script = binary.LittleEndian.AppendUint16(script, uint16(n))
	default:
		script = append(script, OpPushData4)
		script = binary.LittleEndian.AppendUint32(script, uint32(n))
	}
	return append(script, data...)
}

// ReadPush decodes a push operation starting at offset. It returns the
// pushed data and the offset just past it. ok is false when the byte at
// offset is not a push opcode or the script is truncated.
func ReadPush(script []byte, offset int) (data []byte, next int, ok bool) {
	if offset >= len(script) {
		return nil, 0, false
	}
	op := script[offset]
	var n, start int
	switch {
	case op <= maxDirectPush:
		n = int(op)
		start = offset + 1
	case op == OpPushData1:
		if offset+2 > len(script) {
			return nil, 0, false
		}
		n = int(script[offset+1])
		start = offset + 2
	case op == OpPushData2:
		if offset+3 > len(script) {
			return nil, 0, false
		}
		n = int(binary.LittleEndian.Uint16(script[offset+1:]))
		start = offset + 3
	case op == OpPushData4:
		if offset+5 > len(script) {
			return nil, 0, false
		}
		n = int(binary.LittleEndian.Uint32(script[offset+1:]))
		start = offset + 5
	default:
		return nil, 0, false
	}
	if start+n > len(script) {
		return nil, 0, false
	}
	return script[start : start+n], start + n, true
}

// P2PKH returns the standard pay-to-public-key-hash locking script:
// OP_DUP OP_HASH160 <pubKeyHash> OP_EQUALVERIFY OP_CHECKSIG.
func P2PKH(addr types.Address) []byte {
	script := make([]byte, 0, 25)
	script = append(script, OpDup, OpHash160)
	script = AppendPush(script, addr[:])
	return append(script, OpEqualVerify, OpCheckSig)
}

// ParseP2PKH extracts the address from a P2PKH locking script.
// ok is false for any other script shape.
func ParseP2PKH(script []byte) (types.Address, bool) {
	if len(script) != 25 || script[0] != OpDup || script[1] != OpHash160 ||
		script[2] != types.AddressSize || script[23] != OpEqualVerify || script[24] != OpCheckSig {
		return types.Address{}, false
	}
	var addr types.Address
	copy(addr[:], script[3:23])
	return addr, true
}

// Unlock returns the P2PKH unlocking script <sig> <pubKey>.
func Unlock(sig, pubKey []byte) []byte {
	script := AppendPush(nil, sig)
	return AppendPush(script, pubKey)
}

// IsDataOutput reports whether the script is an OP_FALSE OP_RETURN data
// carrier.
func IsDataOutput(script []byte) bool {
	return len(script) >= 2 && script[0] == OpFalse && script[1] == OpReturn
}
