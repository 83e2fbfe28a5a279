package wallet

import (
	"errors"
	"sort"

	"github.com/hushtx/hushtx/pkg/tx"
	"github.com/hushtx/hushtx/pkg/types"
)

// Coin selection errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoUTXOs           = errors.New("no UTXOs available")
)

// UTXO represents a spendable output owned by the wallet, together with its
// parsed source transaction (needed for unlocking-script construction).
type UTXO struct {
	Outpoint   types.Outpoint
	Value      uint64
	LockScript []byte
	SourceTx   *tx.Transaction
}

// Selection holds the result of coin selection. Total may be below the
// target: insufficiency is a caller-checked postcondition, not a selector
// error, because the caller knows the final fee picture.
type Selection struct {
	Selected []UTXO
	Total    uint64
}

// Select accumulates UTXOs largest-first until the target is covered.
// Largest-first minimizes input count and thus fee and unlocking-script
// size for typical small payments; fragmentation tuning is left for later.
// When the whole set cannot cover the target, the full set is returned and
// Total < target.
func Select(utxos []UTXO, target uint64) Selection {
	candidates := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value > 0 {
			candidates = append(candidates, u)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value > candidates[j].Value
		}
		// Deterministic tie-break on outpoint for equal values.
		return candidates[i].Outpoint.String() < candidates[j].Outpoint.String()
	})

	var sel Selection
	for _, u := range candidates {
		if sel.Total >= target {
			break
		}
		sel.Selected = append(sel.Selected, u)
		sel.Total += u.Value
	}
	return sel
}
