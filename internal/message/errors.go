package message

import "errors"

// Package error sentinels, matched with errors.Is.
var (
	// ErrDecryptionMismatch means the envelope did not decrypt under the
	// tried counterparty key. Routine during counterparty discovery; callers
	// try the next key rather than logging an error.
	ErrDecryptionMismatch = errors.New("message does not decrypt with this counterparty key")

	// ErrIntegrity means the envelope decrypted but the plaintext checksum
	// does not match. The plaintext is returned alongside this error so the
	// caller can surface it as suspect instead of discarding it.
	ErrIntegrity = errors.New("plaintext checksum mismatch")

	// ErrNotProtocol means the bytes carry no recognized protocol prefix.
	ErrNotProtocol = errors.New("not a protocol message envelope")
)
