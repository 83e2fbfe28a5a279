package messenger

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/internal/ledger"
	"github.com/hushtx/hushtx/internal/message"
	"github.com/hushtx/hushtx/internal/storage"
	"github.com/hushtx/hushtx/internal/wallet"
	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/tx"
	"github.com/hushtx/hushtx/pkg/types"
)

// fakeSource is an in-memory chaindata.Source fed by the test.
type fakeSource struct {
	unspent      map[string][]chaindata.UnspentOutput
	raw          map[string]string
	history      map[string][]chaindata.HistoryItem
	details      map[string]*chaindata.TxDetail
	historyCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		unspent: make(map[string][]chaindata.UnspentOutput),
		raw:     make(map[string]string),
		history: make(map[string][]chaindata.HistoryItem),
		details: make(map[string]*chaindata.TxDetail),
	}
}

func (f *fakeSource) GetUnspentOutputs(address string) ([]chaindata.UnspentOutput, error) {
	return f.unspent[address], nil
}

func (f *fakeSource) GetRawTransaction(txid string) (string, error) {
	raw, ok := f.raw[txid]
	if !ok {
		return "", fmt.Errorf("%w: no raw tx %s", chaindata.ErrNetworkFetch, txid)
	}
	return raw, nil
}

func (f *fakeSource) GetTransactionHistory(address string, limit int) ([]chaindata.HistoryItem, error) {
	f.historyCalls++
	items := f.history[address]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeSource) GetTransactionDetail(txid string) (*chaindata.TxDetail, error) {
	detail, ok := f.details[txid]
	if !ok {
		return nil, fmt.Errorf("%w: no detail %s", chaindata.ErrNetworkFetch, txid)
	}
	return detail, nil
}

func (f *fakeSource) GetBalance(address string) (*chaindata.Balance, error) {
	return &chaindata.Balance{}, nil
}

// addFunding creates a confirmed transaction paying the address the given
// values and registers its outputs as spendable.
func (f *fakeSource) addFunding(t *testing.T, addr types.Address, values ...uint64) *tx.Transaction {
	t.Helper()
	funding := tx.New()
	funding.AddInput(types.Outpoint{TxID: types.Hash{0xee}, Index: 0})
	for _, v := range values {
		funding.AddOutput(v, script.P2PKH(addr))
	}
	txid := funding.Hash().String()
	f.raw[txid] = funding.Hex()
	f.registerDetail(funding, 0)

	addrStr := addr.String()
	for i, v := range values {
		f.unspent[addrStr] = append(f.unspent[addrStr], chaindata.UnspentOutput{
			TxID:          txid,
			OutputIndex:   uint32(i),
			ValueSatoshis: v,
		})
	}
	return funding
}

// registerDetail stores the explorer-decoded form of a transaction.
func (f *fakeSource) registerDetail(t *tx.Transaction, timeSec int64) *chaindata.TxDetail {
	detail := &chaindata.TxDetail{TxID: t.Hash().String(), Time: timeSec}
	for _, in := range t.Inputs {
		detail.Vin = append(detail.Vin, chaindata.TxDetailVin{
			TxID: in.PrevOut.TxID.String(),
			Vout: in.PrevOut.Index,
		})
	}
	for _, out := range t.Outputs {
		vout := chaindata.TxDetailVout{ValueBTC: float64(out.Value) / 1e8}
		vout.Script.Hex = hex.EncodeToString(out.LockScript)
		detail.Vout = append(detail.Vout, vout)
	}
	f.details[detail.TxID] = detail
	return detail
}

// addToHistory lists a transaction in an address's confirmed history.
func (f *fakeSource) addToHistory(addr types.Address, t *tx.Transaction, timeSec int64) {
	f.history[addr.String()] = append(f.history[addr.String()], chaindata.HistoryItem{
		TxID:            t.Hash().String(),
		TimeUnixSeconds: timeSec,
	})
	f.registerDetail(t, timeSec)
}

// fakeBroadcaster accepts everything unless rejectWith is set.
type fakeBroadcaster struct {
	rejectWith error
	submitted  []string
	txid       string
}

func (b *fakeBroadcaster) Submit(rawTxHex string) (string, error) {
	if b.rejectWith != nil {
		return "", b.rejectWith
	}
	b.submitted = append(b.submitted, rawTxHex)
	if b.txid != "" {
		return b.txid, nil
	}
	parsed, err := tx.DeserializeHex(rawTxHex)
	if err != nil {
		return "", err
	}
	return parsed.Hash().String(), nil
}

func testClock() func() time.Time {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newIdentity(t *testing.T) *wallet.Identity {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	id, err := wallet.IdentityFromPrivateKey(key.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func asCounterparty(id string, identity *wallet.Identity) wallet.Counterparty {
	return wallet.Counterparty{
		ID:          id,
		DisplayName: id,
		PublicKey:   identity.PublicKey().Hex(),
	}
}

// testEnv bundles the wired collaborators for one wallet identity.
type testEnv struct {
	identity    *wallet.Identity
	source      *fakeSource
	fetcher     *wallet.Fetcher
	ledger      *ledger.Ledger
	codec       *message.Codec
	broadcaster *fakeBroadcaster
	builder     *Builder
	reader      *Reader
	now         time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		identity:    newIdentity(t),
		source:      newFakeSource(),
		broadcaster: &fakeBroadcaster{},
		now:         time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	led, err := ledger.Open(storage.NewMemory(), env.clock)
	if err != nil {
		t.Fatal(err)
	}
	env.ledger = led
	env.fetcher = wallet.NewFetcher(env.source)
	env.codec = message.NewCodec(led, env.clock)
	env.builder = NewBuilder(env.identity, env.fetcher, env.codec, led, env.broadcaster, 1)
	env.reader = NewReader(env.identity, env.source, env.codec, led, env.clock)
	return env
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) fund(t *testing.T, values ...uint64) {
	t.Helper()
	e.source.addFunding(t, e.identity.Address(), values...)
}
