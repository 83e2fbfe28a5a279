package wallet

import (
	"fmt"
	"sync"

	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/pkg/tx"
	"github.com/hushtx/hushtx/pkg/types"
)

// Fetcher retrieves spendable outputs from the chain-data collaborator.
// It keeps a session-local advisory set of outpoints spent by our own
// broadcasts, so a rapid second send doesn't pick the same coins before the
// explorer reflects the spend. Chain state always supersedes the set.
type Fetcher struct {
	src chaindata.Source

	mu    sync.Mutex
	spent map[string]bool
}

// NewFetcher creates a UTXO fetcher over the given chain-data source.
func NewFetcher(src chaindata.Source) *Fetcher {
	return &Fetcher{src: src, spent: make(map[string]bool)}
}

// FetchSpendable lists spendable UTXOs for an address, fetching and parsing
// each source transaction. A fetch failure for one source transaction skips
// that UTXO; only the unspent-output listing itself is fatal.
func (f *Fetcher) FetchSpendable(address string) ([]UTXO, error) {
	unspent, err := f.src.GetUnspentOutputs(address)
	if err != nil {
		return nil, fmt.Errorf("fetch unspent outputs for %s: %w", address, err)
	}

	var utxos []UTXO
	for _, u := range unspent {
		txid, err := types.HexToHash(u.TxID)
		if err != nil {
			log.Wallet.Warn().Str("txid", u.TxID).Err(err).Msg("skipping UTXO with bad txid")
			continue
		}
		outpoint := types.Outpoint{TxID: txid, Index: u.OutputIndex}
		if f.isSpent(outpoint) {
			continue
		}

		rawHex, err := f.src.GetRawTransaction(u.TxID)
		if err != nil {
			log.Wallet.Warn().Str("txid", u.TxID).Err(err).Msg("skipping UTXO, source tx fetch failed")
			continue
		}
		source, err := tx.DeserializeHex(rawHex)
		if err != nil {
			log.Wallet.Warn().Str("txid", u.TxID).Err(err).Msg("skipping UTXO, source tx unparseable")
			continue
		}
		if int(u.OutputIndex) >= len(source.Outputs) {
			log.Wallet.Warn().Str("txid", u.TxID).Uint32("vout", u.OutputIndex).Msg("skipping UTXO, output index out of range")
			continue
		}

		utxos = append(utxos, UTXO{
			Outpoint:   outpoint,
			Value:      u.ValueSatoshis,
			LockScript: source.Outputs[u.OutputIndex].LockScript,
			SourceTx:   source,
		})
	}
	return utxos, nil
}

// MarkSpent records outpoints consumed by a successful broadcast.
func (f *Fetcher) MarkSpent(outpoints []types.Outpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range outpoints {
		f.spent[op.String()] = true
	}
}

func (f *Fetcher) isSpent(op types.Outpoint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spent[op.String()]
}

// Balance returns the confirmed/unconfirmed balance for an address.
func (f *Fetcher) Balance(address string) (*chaindata.Balance, error) {
	balance, err := f.src.GetBalance(address)
	if err != nil {
		return nil, fmt.Errorf("fetch balance for %s: %w", address, err)
	}
	return balance, nil
}
