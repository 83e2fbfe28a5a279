package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/internal/storage"
)

const (
	// snapshotVersion is the persisted snapshot format version.
	snapshotVersion = 1

	// maxRecordsPerCounterparty caps invoice history per counterparty;
	// the oldest entries are evicted first.
	maxRecordsPerCounterparty = 100

	// DefaultRetentionDays is the default Cleanup cutoff.
	DefaultRetentionDays = 30
)

// snapshotKey is the storage key for the whole-ledger snapshot. Callers
// namespace the DB (wallet-identity prefix) before handing it over.
var snapshotKey = []byte("ledger/snapshot")

// Record is one issued invoice number.
type Record struct {
	InvoiceNumber string `json:"invoiceNumber"`
	TimestampMs   int64  `json:"timestampMs"`
	TxID          string `json:"txid,omitempty"`
}

// MessageMeta is the persisted decryption metadata for one on-chain
// message, keyed by txid. It is what ReDecrypt consults later.
type MessageMeta struct {
	CounterpartyID string `json:"counterpartyId"`
	InvoiceNumber  string `json:"invoiceNumber"`
	DailyInvoice   string `json:"dailyInvoice,omitempty"`
	TimestampMs    int64  `json:"timestampMs"`
}

// ConversationState tracks the latest activity per counterparty.
type ConversationState struct {
	LastInvoice     string `json:"lastInvoice,omitempty"`
	LastTimestampMs int64  `json:"lastTimestampMs"`
}

// snapshot is the versioned persisted form of the entire ledger. Every
// mutation re-serializes the whole document; the working set is small and
// there is exactly one writer (the local session).
type snapshot struct {
	Version       int                          `json:"version"`
	Entries       map[string][]Record          `json:"entries"`
	MessageMeta   map[string]MessageMeta       `json:"messageMetadata"`
	Conversations map[string]ConversationState `json:"conversationStates"`
}

// Ledger is the persistent per-counterparty invoice counter and history.
type Ledger struct {
	mu  sync.Mutex
	db  storage.DB
	now func() time.Time

	entries       map[string][]Record
	messageMeta   map[string]MessageMeta
	conversations map[string]ConversationState
}

// Open loads the ledger snapshot from the store, or starts empty when none
// exists. now is the clock used for record timestamps (injectable for tests).
func Open(db storage.DB, now func() time.Time) (*Ledger, error) {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		db:            db,
		now:           now,
		entries:       make(map[string][]Record),
		messageMeta:   make(map[string]MessageMeta),
		conversations: make(map[string]ConversationState),
	}

	data, err := db.Get(snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse ledger snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported ledger snapshot version: %d", snap.Version)
	}
	if snap.Entries != nil {
		l.entries = snap.Entries
	}
	if snap.MessageMeta != nil {
		l.messageMeta = snap.MessageMeta
	}
	if snap.Conversations != nil {
		l.conversations = snap.Conversations
	}
	return l, nil
}

// NextCounter returns the next invoice counter for (counterparty, date,
// purpose): max of existing counters plus one, or 1 when none exist.
func (l *Ledger) NextCounter(counterpartyID, date, purpose string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	highest := 0
	for _, rec := range l.entries[counterpartyID] {
		inv, err := ParseInvoice(rec.InvoiceNumber)
		if err != nil {
			continue
		}
		if inv.Date == date && inv.Purpose == purpose && inv.Counter > highest {
			highest = inv.Counter
		}
	}
	return highest + 1
}

// RecordInvoice appends an invoice record unless the exact invoice number is
// already present, evicting the oldest entries beyond the retention cap.
func (l *Ledger) RecordInvoice(counterpartyID, invoiceNumber, txid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txid = NormalizeTxID(txid)
	for _, rec := range l.entries[counterpartyID] {
		if rec.InvoiceNumber == invoiceNumber {
			return nil
		}
	}

	recs := append(l.entries[counterpartyID], Record{
		InvoiceNumber: invoiceNumber,
		TimestampMs:   l.now().UnixMilli(),
		TxID:          txid,
	})
	l.entries[counterpartyID] = capRecords(recs)

	state := l.conversations[counterpartyID]
	state.LastInvoice = invoiceNumber
	state.LastTimestampMs = l.now().UnixMilli()
	l.conversations[counterpartyID] = state

	return l.persist()
}

// AttachTxID fills in the txid on an already-recorded invoice (invoices are
// recorded at encryption time, before the transaction is broadcast).
func (l *Ledger) AttachTxID(counterpartyID, invoiceNumber, txid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txid = NormalizeTxID(txid)
	recs := l.entries[counterpartyID]
	for i := range recs {
		if recs[i].InvoiceNumber == invoiceNumber {
			recs[i].TxID = txid
			return l.persist()
		}
	}
	return fmt.Errorf("invoice %q not recorded for counterparty %q", invoiceNumber, counterpartyID)
}

// IsUsed reports whether the invoice number has been recorded for the
// counterparty.
func (l *Ledger) IsUsed(counterpartyID, invoiceNumber string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.entries[counterpartyID] {
		if rec.InvoiceNumber == invoiceNumber {
			return true
		}
	}
	return false
}

// RecordMessageMeta persists decryption metadata for an on-chain message.
func (l *Ledger) RecordMessageMeta(txid string, meta MessageMeta) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messageMeta[NormalizeTxID(txid)] = meta
	return l.persist()
}

// MessageMetaByTxID looks up persisted metadata for a transaction.
func (l *Ledger) MessageMetaByTxID(txid string) (MessageMeta, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	meta, ok := l.messageMeta[NormalizeTxID(txid)]
	return meta, ok
}

// Records returns a copy of the invoice history for a counterparty, oldest
// first.
func (l *Ledger) Records(counterpartyID string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	recs := l.entries[counterpartyID]
	out := make([]Record, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out
}

// Cleanup removes invoice records, message metadata, and conversation state
// older than maxAgeDays. Called opportunistically, not on a timer.
func (l *Ledger) Cleanup(maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultRetentionDays
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -maxAgeDays).UnixMilli()
	removed := 0

	for id, recs := range l.entries {
		kept := recs[:0]
		for _, rec := range recs {
			if rec.TimestampMs >= cutoff {
				kept = append(kept, rec)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(l.entries, id)
		} else {
			l.entries[id] = kept
		}
	}
	for txid, meta := range l.messageMeta {
		if meta.TimestampMs < cutoff {
			delete(l.messageMeta, txid)
			removed++
		}
	}
	for id, state := range l.conversations {
		if state.LastTimestampMs < cutoff {
			delete(l.conversations, id)
			removed++
		}
	}

	if removed > 0 {
		log.Ledger.Debug().Int("removed", removed).Int("max_age_days", maxAgeDays).Msg("ledger cleanup")
		return removed, l.persist()
	}
	return 0, nil
}

// capRecords sorts records oldest-first and trims to the retention cap.
// Eviction must always remove the oldest entries regardless of insertion
// order, otherwise NextCounter can restart and reissue a live invoice number.
func capRecords(recs []Record) []Record {
	sort.Slice(recs, func(i, j int) bool { return recs[i].TimestampMs < recs[j].TimestampMs })
	if len(recs) > maxRecordsPerCounterparty {
		recs = recs[len(recs)-maxRecordsPerCounterparty:]
	}
	return recs
}

// persist re-serializes the whole ledger snapshot. Caller must hold l.mu.
func (l *Ledger) persist() error {
	snap := snapshot{
		Version:       snapshotVersion,
		Entries:       l.entries,
		MessageMeta:   l.messageMeta,
		Conversations: l.conversations,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal ledger snapshot: %w", err)
	}
	if err := l.db.Put(snapshotKey, data); err != nil {
		return fmt.Errorf("write ledger snapshot: %w", err)
	}
	return nil
}
