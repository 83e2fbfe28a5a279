package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Backup is the exportable form of the full ledger state plus the contact
// keys the caller supplies. One JSON document restores everything needed to
// re-derive message keys on another install.
type Backup struct {
	Version            int                          `json:"version"`
	WalletID           string                       `json:"walletId"`
	InvoiceNumbers     map[string][]Record          `json:"invoiceNumbers"`
	MessageMetadata    map[string]MessageMeta       `json:"messageMetadata"`
	ContactKeys        map[string]string            `json:"contactKeys"`
	ConversationStates map[string]ConversationState `json:"conversationStates"`
}

// NormalizeTxID canonicalizes a stored transaction-id string. Imported
// backups have been observed with trailing newlines and mixed case in txids;
// normalization here is required before any merge or lookup.
func NormalizeTxID(txid string) string {
	return strings.ToLower(strings.TrimSpace(txid))
}

// Export serializes the ledger state as a backup document.
func (l *Ledger) Export(walletID string, contactKeys map[string]string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	backup := Backup{
		Version:            snapshotVersion,
		WalletID:           walletID,
		InvoiceNumbers:     l.entries,
		MessageMetadata:    l.messageMeta,
		ContactKeys:        contactKeys,
		ConversationStates: l.conversations,
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal ledger backup: %w", err)
	}
	return data, nil
}

// Import merges a backup document into the ledger. Existing records win on
// conflict (dedup by exact invoice-number string); txids are normalized
// before merging. Returns the merged record count and the backup's contact
// keys for the caller to reconcile against its contact book.
func (l *Ledger) Import(data []byte) (int, map[string]string, error) {
	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return 0, nil, fmt.Errorf("parse ledger backup: %w", err)
	}
	if backup.Version != snapshotVersion {
		return 0, nil, fmt.Errorf("unsupported ledger backup version: %d", backup.Version)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	merged := 0
	for counterpartyID, recs := range backup.InvoiceNumbers {
		existing := make(map[string]bool, len(l.entries[counterpartyID]))
		for _, rec := range l.entries[counterpartyID] {
			existing[rec.InvoiceNumber] = true
		}
		for _, rec := range recs {
			if existing[rec.InvoiceNumber] {
				continue
			}
			rec.TxID = NormalizeTxID(rec.TxID)
			l.entries[counterpartyID] = append(l.entries[counterpartyID], rec)
			existing[rec.InvoiceNumber] = true
			merged++
		}
		l.entries[counterpartyID] = capRecords(l.entries[counterpartyID])
	}

	for txid, meta := range backup.MessageMetadata {
		norm := NormalizeTxID(txid)
		if _, ok := l.messageMeta[norm]; !ok {
			l.messageMeta[norm] = meta
			merged++
		}
	}

	for id, state := range backup.ConversationStates {
		if current, ok := l.conversations[id]; !ok || state.LastTimestampMs > current.LastTimestampMs {
			l.conversations[id] = state
		}
	}

	if err := l.persist(); err != nil {
		return merged, backup.ContactKeys, err
	}
	return merged, backup.ContactKeys, nil
}
