// Package message encrypts and decrypts chat payloads carried in on-chain
// data outputs.
package message

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hushtx/hushtx/pkg/script"
)

// ProtocolPrefix tags every data output this wallet produces.
var ProtocolPrefix = []byte{0x19, 0x33}

// MaxEnvelopeSize is the hard cap on the envelope carried by one data
// output. Oversized envelopes are truncated with a warning, not split.
const MaxEnvelopeSize = 220

// metaLenChars is the width of the ASCII-hex metadata length field.
const metaLenChars = 4

// Metadata is the advanced-format metadata block, serialized as compact
// JSON between the protocol prefix and the ciphertext.
type Metadata struct {
	V int    `json:"v"`           // format version
	I string `json:"i"`           // message invoice number
	D string `json:"d,omitempty"` // daily invoice number
	T int64  `json:"t"`           // unix seconds at encryption
	C string `json:"c"`           // 8-hex-char truncated SHA-256 of plaintext
}

// Envelope is a parsed message envelope. Metadata is nil for the legacy
// plain-ECDH format.
type Envelope struct {
	Metadata   *Metadata
	Ciphertext []byte
}

// Encode serializes the envelope:
// prefix(2) | metaLen(4 ASCII hex) | metadata JSON | ciphertext.
// Legacy envelopes (nil metadata) omit the length and metadata block.
func (e *Envelope) Encode() ([]byte, error) {
	out := append([]byte{}, ProtocolPrefix...)
	if e.Metadata != nil {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		if len(meta) > 0xffff {
			return nil, fmt.Errorf("metadata block too large: %d bytes", len(meta))
		}
		out = append(out, []byte(fmt.Sprintf("%04x", len(meta)))...)
		out = append(out, meta...)
	}
	return append(out, e.Ciphertext...), nil
}

// ParseEnvelope decodes envelope bytes. Format detection is by shape: a
// well-formed length field followed by a JSON object carrying an "i" field
// marks the advanced format; anything else after the prefix is treated as
// legacy ciphertext.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < len(ProtocolPrefix) || !bytes.Equal(data[:len(ProtocolPrefix)], ProtocolPrefix) {
		return nil, ErrNotProtocol
	}
	body := data[len(ProtocolPrefix):]

	if meta, rest, ok := tryMetadata(body); ok {
		return &Envelope{Metadata: meta, Ciphertext: rest}, nil
	}
	return &Envelope{Ciphertext: body}, nil
}

// tryMetadata attempts to read an advanced-format metadata block.
func tryMetadata(body []byte) (*Metadata, []byte, bool) {
	if len(body) < metaLenChars {
		return nil, nil, false
	}
	lenBytes, err := hex.DecodeString(string(body[:metaLenChars]))
	if err != nil {
		return nil, nil, false
	}
	metaLen := int(lenBytes[0])<<8 | int(lenBytes[1])
	if metaLen == 0 || metaLenChars+metaLen > len(body) {
		return nil, nil, false
	}
	var meta Metadata
	if err := json.Unmarshal(body[metaLenChars:metaLenChars+metaLen], &meta); err != nil || meta.I == "" {
		return nil, nil, false
	}
	return &meta, body[metaLenChars+metaLen:], true
}

// BuildDataScript wraps envelope bytes in the on-chain data-carrying
// locking script: OP_FALSE OP_RETURN <envelope>.
func BuildDataScript(envelope []byte) []byte {
	s := []byte{script.OpFalse, script.OpReturn}
	return script.AppendPush(s, envelope)
}

// ParseDataScript extracts envelope bytes from a data-carrying locking
// script. ok is false for scripts that are not protocol-tagged data
// outputs; most on-chain scripts are not, so this is not an error.
func ParseDataScript(lockScript []byte) ([]byte, bool) {
	if !script.IsDataOutput(lockScript) {
		return nil, false
	}
	data, _, ok := script.ReadPush(lockScript, 2)
	if !ok || len(data) < len(ProtocolPrefix) || !bytes.Equal(data[:len(ProtocolPrefix)], ProtocolPrefix) {
		return nil, false
	}
	return data, true
}
