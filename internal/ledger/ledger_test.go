package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/hushtx/hushtx/internal/storage"
)

// testClock is an adjustable clock for deterministic timestamps.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func openTestLedger(t *testing.T) (*Ledger, *testClock) {
	t.Helper()
	clock := newTestClock()
	led, err := Open(storage.NewMemory(), clock.Now)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return led, clock
}

func TestNextCounter_StartsAtOne(t *testing.T) {
	led, _ := openTestLedger(t)
	if got := led.NextCounter("alice", "2024-01-15", PurposeMessage); got != 1 {
		t.Errorf("NextCounter() = %d, want 1", got)
	}
}

func TestNextCounter_Monotonic(t *testing.T) {
	led, _ := openTestLedger(t)

	for want := 1; want <= 5; want++ {
		got := led.NextCounter("alice", "2024-01-15", PurposeMessage)
		if got != want {
			t.Fatalf("NextCounter() = %d, want %d", got, want)
		}
		inv := Invoice{Purpose: PurposeMessage, Date: "2024-01-15", PubPrefix: "02b4632d", Counter: got}
		if err := led.RecordInvoice("alice", inv.String(), ""); err != nil {
			t.Fatalf("RecordInvoice() error: %v", err)
		}
	}
}

func TestNextCounter_ScopedByDateAndPurpose(t *testing.T) {
	led, _ := openTestLedger(t)

	inv := Invoice{Purpose: PurposeMessage, Date: "2024-01-15", PubPrefix: "02b4632d", Counter: 1}
	led.RecordInvoice("alice", inv.String(), "")

	// A new day restarts the counter.
	if got := led.NextCounter("alice", "2024-01-16", PurposeMessage); got != 1 {
		t.Errorf("NextCounter(new date) = %d, want 1", got)
	}
	// A different purpose has its own counter.
	if got := led.NextCounter("alice", "2024-01-15", PurposeConversation); got != 1 {
		t.Errorf("NextCounter(other purpose) = %d, want 1", got)
	}
	// A different counterparty has its own counter.
	if got := led.NextCounter("bob", "2024-01-15", PurposeMessage); got != 1 {
		t.Errorf("NextCounter(other counterparty) = %d, want 1", got)
	}
	// Same scope continues.
	if got := led.NextCounter("alice", "2024-01-15", PurposeMessage); got != 2 {
		t.Errorf("NextCounter(same scope) = %d, want 2", got)
	}
}

func TestRecordInvoice_Dedup(t *testing.T) {
	led, _ := openTestLedger(t)

	invoice := "2-msg-2024-01-15-02b4632d-1"
	led.RecordInvoice("alice", invoice, "")
	led.RecordInvoice("alice", invoice, "")

	if got := len(led.Records("alice")); got != 1 {
		t.Errorf("records = %d after duplicate insert, want 1", got)
	}
	if !led.IsUsed("alice", invoice) {
		t.Error("IsUsed() should report the recorded invoice")
	}
}

func TestRecordInvoice_EvictsBeyondCap(t *testing.T) {
	led, clock := openTestLedger(t)

	for i := 1; i <= maxRecordsPerCounterparty+10; i++ {
		inv := Invoice{Purpose: PurposeMessage, Date: "2024-01-15", PubPrefix: "02b4632d", Counter: i}
		if err := led.RecordInvoice("alice", inv.String(), ""); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Second)
	}

	recs := led.Records("alice")
	if len(recs) != maxRecordsPerCounterparty {
		t.Fatalf("records = %d, want cap %d", len(recs), maxRecordsPerCounterparty)
	}
	// The oldest entries were evicted.
	first := Invoice{Purpose: PurposeMessage, Date: "2024-01-15", PubPrefix: "02b4632d", Counter: 1}
	if led.IsUsed("alice", first.String()) {
		t.Error("oldest invoice should have been evicted")
	}
}

func TestAttachTxID(t *testing.T) {
	led, _ := openTestLedger(t)

	invoice := "2-msg-2024-01-15-02b4632d-1"
	led.RecordInvoice("alice", invoice, "")

	if err := led.AttachTxID("alice", invoice, "ABCDEF01"); err != nil {
		t.Fatalf("AttachTxID() error: %v", err)
	}
	recs := led.Records("alice")
	if recs[0].TxID != "abcdef01" {
		t.Errorf("TxID = %q, want normalized %q", recs[0].TxID, "abcdef01")
	}

	if err := led.AttachTxID("alice", "2-msg-2024-01-15-02b4632d-99", "x"); err == nil {
		t.Error("AttachTxID() on unknown invoice should fail")
	}
}

func TestMessageMeta_Roundtrip(t *testing.T) {
	led, _ := openTestLedger(t)

	meta := MessageMeta{
		CounterpartyID: "alice",
		InvoiceNumber:  "2-msg-2024-01-15-02b4632d-1",
		DailyInvoice:   "2-daily-2024-01-15",
		TimestampMs:    1705312800000,
	}
	if err := led.RecordMessageMeta("TXID01", meta); err != nil {
		t.Fatalf("RecordMessageMeta() error: %v", err)
	}

	// Lookup normalizes case.
	got, ok := led.MessageMetaByTxID("txid01")
	if !ok {
		t.Fatal("MessageMetaByTxID() should find the record")
	}
	if got != meta {
		t.Errorf("meta = %+v, want %+v", got, meta)
	}

	if _, ok := led.MessageMetaByTxID("missing"); ok {
		t.Error("MessageMetaByTxID() should miss for unknown txid")
	}
}

func TestCleanup(t *testing.T) {
	led, clock := openTestLedger(t)

	led.RecordInvoice("old", "2-msg-2024-01-15-02b4632d-1", "")
	led.RecordMessageMeta("oldtx", MessageMeta{CounterpartyID: "old", TimestampMs: clock.Now().UnixMilli()})

	clock.Advance(40 * 24 * time.Hour)
	led.RecordInvoice("fresh", "2-msg-2024-02-24-02b4632d-1", "")

	removed, err := led.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed == 0 {
		t.Fatal("Cleanup() should remove stale entries")
	}

	if len(led.Records("old")) != 0 {
		t.Error("stale invoice records should be gone")
	}
	if _, ok := led.MessageMetaByTxID("oldtx"); ok {
		t.Error("stale message metadata should be gone")
	}
	if len(led.Records("fresh")) != 1 {
		t.Error("fresh records should survive cleanup")
	}
}

func TestCleanup_NothingToRemove(t *testing.T) {
	led, _ := openTestLedger(t)
	led.RecordInvoice("alice", "2-msg-2024-01-15-02b4632d-1", "")

	removed, err := led.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("Cleanup() removed %d, want 0", removed)
	}
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	db := storage.NewMemory()
	clock := newTestClock()

	led, err := Open(db, clock.Now)
	if err != nil {
		t.Fatal(err)
	}
	led.RecordInvoice("alice", "2-msg-2024-01-15-02b4632d-1", "feed01")
	led.RecordMessageMeta("feed01", MessageMeta{CounterpartyID: "alice", TimestampMs: clock.Now().UnixMilli()})

	reopened, err := Open(db, clock.Now)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if !reopened.IsUsed("alice", "2-msg-2024-01-15-02b4632d-1") {
		t.Error("invoice should survive reopen")
	}
	if _, ok := reopened.MessageMetaByTxID("feed01"); !ok {
		t.Error("message metadata should survive reopen")
	}
	// Counter continues where it left off.
	if got := reopened.NextCounter("alice", "2024-01-15", PurposeMessage); got != 2 {
		t.Errorf("NextCounter() after reopen = %d, want 2", got)
	}
}

func TestRecords_SortedOldestFirst(t *testing.T) {
	led, clock := openTestLedger(t)

	for i := 1; i <= 3; i++ {
		inv := Invoice{Purpose: PurposeMessage, Date: "2024-01-15", PubPrefix: "02b4632d", Counter: i}
		led.RecordInvoice("alice", inv.String(), fmt.Sprintf("tx%d", i))
		clock.Advance(time.Minute)
	}

	recs := led.Records("alice")
	for i := 1; i < len(recs); i++ {
		if recs[i].TimestampMs < recs[i-1].TimestampMs {
			t.Fatal("records should be sorted oldest first")
		}
	}
}
