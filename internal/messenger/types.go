// Package messenger assembles, broadcasts, and recovers encrypted message
// and inscription transactions.
package messenger

import "sort"

// EncryptionVariant identifies the envelope format of a recovered message.
type EncryptionVariant string

const (
	VariantAdvanced EncryptionVariant = "advanced"
	VariantLegacy   EncryptionVariant = "legacy"
	VariantUnknown  EncryptionVariant = "unknown"
)

// OnChainMessage is one protocol-tagged message recovered from chain data.
// Undecryptable messages are retained with a placeholder so that metadata
// imported later can trigger re-decryption without re-fetching.
type OnChainMessage struct {
	TxID              string            `json:"txid"`
	TimestampMs       int64             `json:"timestampMs"`
	Plaintext         string            `json:"plaintext"`
	Placeholder       bool              `json:"placeholder"`
	Suspect           bool              `json:"suspect,omitempty"` // checksum mismatch, shown with a warning
	SenderRef         string            `json:"senderRef"`
	RecipientRef      string            `json:"recipientRef"`
	RawCiphertextHex  string            `json:"rawCiphertextHex"`
	IsFromSelf        bool              `json:"isFromSelf"`
	CounterpartyID    string            `json:"counterpartyId,omitempty"`
	InvoiceID         string            `json:"invoiceId,omitempty"`
	EncryptionVariant EncryptionVariant `json:"encryptionVariant"`
}

// ConversationThread groups one counterparty's messages, oldest first.
type ConversationThread struct {
	CounterpartyID string           `json:"counterpartyId"`
	Messages       []OnChainMessage `json:"messages"`
}

// sortByTimestamp orders messages ascending by timestamp, with txid as a
// stable tie-break. Fetch-completion order is never meaningful.
func sortByTimestamp(messages []OnChainMessage) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].TimestampMs != messages[j].TimestampMs {
			return messages[i].TimestampMs < messages[j].TimestampMs
		}
		return messages[i].TxID < messages[j].TxID
	})
}
