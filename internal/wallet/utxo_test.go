package wallet

import (
	"fmt"
	"testing"

	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/tx"
	"github.com/hushtx/hushtx/pkg/types"
)

// fakeSource is an in-memory chain-data source.
type fakeSource struct {
	unspent []chaindata.UnspentOutput
	rawTxs  map[string]string
	balance chaindata.Balance
}

func (f *fakeSource) GetUnspentOutputs(string) ([]chaindata.UnspentOutput, error) {
	return f.unspent, nil
}

func (f *fakeSource) GetRawTransaction(txid string) (string, error) {
	raw, ok := f.rawTxs[txid]
	if !ok {
		return "", fmt.Errorf("%w: tx %s", chaindata.ErrNetworkFetch, txid)
	}
	return raw, nil
}

func (f *fakeSource) GetTransactionHistory(string, int) ([]chaindata.HistoryItem, error) {
	return nil, nil
}

func (f *fakeSource) GetTransactionDetail(string) (*chaindata.TxDetail, error) {
	return nil, fmt.Errorf("%w: no detail", chaindata.ErrNetworkFetch)
}

func (f *fakeSource) GetBalance(string) (*chaindata.Balance, error) {
	return &f.balance, nil
}

// makeSourceTx builds a transaction with the given output values and
// registers it with the source, returning its txid.
func makeSourceTx(t *testing.T, src *fakeSource, values ...uint64) string {
	t.Helper()
	source := tx.New()
	var prev types.Hash
	prev[0] = 0xab
	source.AddInput(types.Outpoint{TxID: prev, Index: 0})
	var addr types.Address
	for _, v := range values {
		source.AddOutput(v, script.P2PKH(addr))
	}
	txid := source.Hash().String()
	src.rawTxs[txid] = source.Hex()
	return txid
}

func TestFetchSpendable(t *testing.T) {
	src := &fakeSource{rawTxs: make(map[string]string)}
	txid := makeSourceTx(t, src, 1000, 2000)
	src.unspent = []chaindata.UnspentOutput{
		{TxID: txid, OutputIndex: 0, ValueSatoshis: 1000},
		{TxID: txid, OutputIndex: 1, ValueSatoshis: 2000},
	}

	f := NewFetcher(src)
	utxos, err := f.FetchSpendable("addr")
	if err != nil {
		t.Fatalf("FetchSpendable() error: %v", err)
	}
	if len(utxos) != 2 {
		t.Fatalf("got %d UTXOs, want 2", len(utxos))
	}
	if utxos[0].Value != 1000 || utxos[1].Value != 2000 {
		t.Errorf("values = %d, %d", utxos[0].Value, utxos[1].Value)
	}
	if utxos[0].SourceTx == nil || len(utxos[0].LockScript) == 0 {
		t.Error("UTXO should carry the parsed source transaction and lock script")
	}
}

func TestFetchSpendable_SkipsFailedSourceTx(t *testing.T) {
	src := &fakeSource{rawTxs: make(map[string]string)}
	good := makeSourceTx(t, src, 500)
	missing := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	src.unspent = []chaindata.UnspentOutput{
		{TxID: missing, OutputIndex: 0, ValueSatoshis: 9999},
		{TxID: good, OutputIndex: 0, ValueSatoshis: 500},
	}

	utxos, err := NewFetcher(src).FetchSpendable("addr")
	if err != nil {
		t.Fatalf("FetchSpendable() error: %v", err)
	}
	if len(utxos) != 1 {
		t.Fatalf("got %d UTXOs, want 1 (failed fetch skipped, not fatal)", len(utxos))
	}
	if utxos[0].Value != 500 {
		t.Error("surviving UTXO should be the good one")
	}
}

func TestFetchSpendable_SkipsOutOfRangeIndex(t *testing.T) {
	src := &fakeSource{rawTxs: make(map[string]string)}
	txid := makeSourceTx(t, src, 500)
	src.unspent = []chaindata.UnspentOutput{
		{TxID: txid, OutputIndex: 7, ValueSatoshis: 500},
	}

	utxos, err := NewFetcher(src).FetchSpendable("addr")
	if err != nil {
		t.Fatalf("FetchSpendable() error: %v", err)
	}
	if len(utxos) != 0 {
		t.Errorf("got %d UTXOs, want 0 (index out of range)", len(utxos))
	}
}

func TestFetchSpendable_SkipsBadTxID(t *testing.T) {
	src := &fakeSource{rawTxs: make(map[string]string)}
	src.unspent = []chaindata.UnspentOutput{
		{TxID: "zz-not-hex", OutputIndex: 0, ValueSatoshis: 500},
	}

	utxos, err := NewFetcher(src).FetchSpendable("addr")
	if err != nil {
		t.Fatalf("FetchSpendable() error: %v", err)
	}
	if len(utxos) != 0 {
		t.Errorf("got %d UTXOs, want 0", len(utxos))
	}
}

func TestMarkSpent(t *testing.T) {
	src := &fakeSource{rawTxs: make(map[string]string)}
	txid := makeSourceTx(t, src, 1000, 2000)
	src.unspent = []chaindata.UnspentOutput{
		{TxID: txid, OutputIndex: 0, ValueSatoshis: 1000},
		{TxID: txid, OutputIndex: 1, ValueSatoshis: 2000},
	}

	f := NewFetcher(src)
	utxos, err := f.FetchSpendable("addr")
	if err != nil {
		t.Fatal(err)
	}
	if len(utxos) != 2 {
		t.Fatalf("got %d UTXOs, want 2", len(utxos))
	}

	f.MarkSpent([]types.Outpoint{utxos[0].Outpoint})

	utxos, err = f.FetchSpendable("addr")
	if err != nil {
		t.Fatal(err)
	}
	if len(utxos) != 1 {
		t.Fatalf("got %d UTXOs after MarkSpent, want 1", len(utxos))
	}
	if utxos[0].Value != 2000 {
		t.Error("marked outpoint should be excluded")
	}
}

func TestBalance(t *testing.T) {
	src := &fakeSource{
		rawTxs:  make(map[string]string),
		balance: chaindata.Balance{Confirmed: 12345, Unconfirmed: 678},
	}

	balance, err := NewFetcher(src).Balance("addr")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if balance.Confirmed != 12345 || balance.Unconfirmed != 678 {
		t.Errorf("Balance() = %+v", balance)
	}
}
