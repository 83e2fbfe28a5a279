package messenger

import (
	"errors"
	"fmt"

	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/internal/ledger"
	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/internal/message"
	"github.com/hushtx/hushtx/internal/wallet"
	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/tx"
	"github.com/hushtx/hushtx/pkg/types"
)

// DustLimit is the value of the payment output that makes a message
// transaction land in the recipient's history. Anything below this is
// rejected by standardness rules on most nodes.
const DustLimit uint64 = 546

// selectionPasses bounds the fee/selection fixed point. Largest-first
// selection is monotone in the target, so the input count stabilizes after
// at most one re-selection in practice; the bound is a hard stop, not a
// tuning knob.
const selectionPasses = 4

// Builder assembles, signs, and broadcasts transactions for one wallet
// identity.
type Builder struct {
	identity    *wallet.Identity
	fetcher     *wallet.Fetcher
	codec       *message.Codec
	ledger      *ledger.Ledger
	broadcaster chaindata.Broadcaster
	satPerKB    uint64
}

// NewBuilder wires a transaction builder. satPerKB below 1 is clamped to 1.
func NewBuilder(identity *wallet.Identity, fetcher *wallet.Fetcher, codec *message.Codec, led *ledger.Ledger, broadcaster chaindata.Broadcaster, satPerKB uint64) *Builder {
	if satPerKB < 1 {
		satPerKB = 1
	}
	return &Builder{
		identity:    identity,
		fetcher:     fetcher,
		codec:       codec,
		ledger:      led,
		broadcaster: broadcaster,
		satPerKB:    satPerKB,
	}
}

// BuiltTx is a signed transaction ready for broadcast, together with the
// bookkeeping needed after it is accepted.
type BuiltTx struct {
	Tx      *tx.Transaction
	TxID    string
	RawHex  string
	Fee     uint64
	Change  uint64
	Spent   []types.Outpoint
	Encrypt *message.EncryptResult // nil for inscription transactions
}

// BuildMessageTx encrypts the plaintext for the recipient and builds a
// signed transaction carrying it: a zero-value data output with the
// envelope, a dust payment to the recipient, and change back to the wallet.
func (b *Builder) BuildMessageTx(recipient wallet.Counterparty, plaintext []byte) (*BuiltTx, error) {
	recipientKey, err := recipient.Key()
	if err != nil {
		return nil, err
	}

	enc, err := b.codec.Encrypt(b.identity.PrivateKey(), recipientKey, recipient.ID, plaintext)
	if err != nil {
		return nil, err
	}
	dataScript := message.BuildDataScript(enc.Envelope)
	recipientAddr := crypto.AddressFromPubKey(recipientKey.SerializeCompressed())

	built, err := b.build([]plannedOutput{
		{value: 0, lockScript: dataScript, data: true},
		{value: DustLimit, lockScript: script.P2PKH(recipientAddr)},
	})
	if err != nil {
		return nil, err
	}
	built.Encrypt = enc

	log.Message.Info().
		Str("txid", built.TxID).
		Str("invoice", enc.InvoiceNumber).
		Uint64("fee", built.Fee).
		Int("inputs", len(built.Spent)).
		Msg("message transaction built")
	return built, nil
}

// BuildInscriptionTx builds a signed transaction with a single one-satoshi
// inscription output locked to the wallet's own address, plus change.
func (b *Builder) BuildInscriptionTx(inscriptionScript []byte, outputValue uint64) (*BuiltTx, error) {
	built, err := b.build([]plannedOutput{
		{value: outputValue, lockScript: inscriptionScript, data: true},
	})
	if err != nil {
		return nil, err
	}

	log.Inscribe.Info().
		Str("txid", built.TxID).
		Uint64("fee", built.Fee).
		Int("script_bytes", len(inscriptionScript)).
		Msg("inscription transaction built")
	return built, nil
}

// plannedOutput is one fixed output of a transaction under construction.
// Outputs marked data are fee-estimated by script length rather than as
// standard P2PKH outputs.
type plannedOutput struct {
	value      uint64
	lockScript []byte
	data       bool
}

// build runs coin selection and the fee fixed point, then assembles and
// signs the transaction. Change below the dust limit is folded into the fee
// rather than creating an unspendable output.
func (b *Builder) build(outputs []plannedOutput) (*BuiltTx, error) {
	utxos, err := b.fetcher.FetchSpendable(b.identity.Address().String())
	if err != nil {
		return nil, err
	}
	if len(utxos) == 0 {
		return nil, wallet.ErrNoUTXOs
	}

	var fixedValue uint64
	payloadBytes := 0
	stdOutputs := 1 // change
	for _, out := range outputs {
		fixedValue += out.value
		if out.data {
			payloadBytes += len(out.lockScript)
		} else {
			stdOutputs++
		}
	}

	// Fee depends on input count, input count depends on the fee-inclusive
	// target. Iterate until the selection is stable; largest-first selection
	// grows monotonically with the target, so this converges after at most
	// one extra pass.
	numInputs := 1
	var sel wallet.Selection
	var fee, target uint64
	for pass := 0; pass < selectionPasses; pass++ {
		fee = tx.EstimateFee(tx.EstimateSize(numInputs, stdOutputs, payloadBytes), b.satPerKB)
		target = fixedValue + fee
		sel = wallet.Select(utxos, target)
		if len(sel.Selected) == numInputs || len(sel.Selected) == len(utxos) {
			break
		}
		numInputs = len(sel.Selected)
	}
	fee = tx.EstimateFee(tx.EstimateSize(len(sel.Selected), stdOutputs, payloadBytes), b.satPerKB)
	target = fixedValue + fee
	if sel.Total < target {
		return nil, fmt.Errorf("%w: need %d satoshis, have %d (short %d)",
			wallet.ErrInsufficientFunds, target, sel.Total, target-sel.Total)
	}

	t := tx.New()
	for _, u := range sel.Selected {
		t.AddInput(u.Outpoint)
	}
	for _, out := range outputs {
		t.AddOutput(out.value, out.lockScript)
	}
	change := sel.Total - target
	if change >= DustLimit {
		t.AddOutput(change, script.P2PKH(b.identity.Address()))
	} else {
		fee += change
		change = 0
	}

	for i, u := range sel.Selected {
		if err := t.SignInput(i, u.Value, u.LockScript, b.identity.PrivateKey()); err != nil {
			return nil, err
		}
	}

	spent := make([]types.Outpoint, len(sel.Selected))
	for i, u := range sel.Selected {
		spent[i] = u.Outpoint
	}
	return &BuiltTx{
		Tx:     t,
		TxID:   t.Hash().String(),
		RawHex: t.Hex(),
		Fee:    fee,
		Change: change,
		Spent:  spent,
	}, nil
}

// Send broadcasts a built transaction and persists the post-broadcast
// bookkeeping: the txid is attached to the invoice record, decryption
// metadata is stored for later recovery, and the consumed outpoints are
// marked spent. On rejection the raw hex stays in the returned BuiltTx so
// the caller can submit it manually; broadcast is never retried here.
func (b *Builder) Send(built *BuiltTx) (string, error) {
	txid, err := b.broadcaster.Submit(built.RawHex)
	if err != nil {
		log.Message.Error().Err(err).Str("txid", built.TxID).Msg("broadcast rejected")
		return "", err
	}
	if txid != built.TxID {
		log.Message.Warn().Str("local", built.TxID).Str("node", txid).Msg("node txid differs from local computation")
	}

	b.fetcher.MarkSpent(built.Spent)

	if enc := built.Encrypt; enc != nil {
		if err := b.ledger.AttachTxID(enc.CounterpartyID, enc.InvoiceNumber, txid); err != nil {
			log.Ledger.Warn().Err(err).Msg("attach txid to invoice failed")
		}
		meta := ledger.MessageMeta{
			CounterpartyID: enc.CounterpartyID,
			InvoiceNumber:  enc.InvoiceNumber,
			DailyInvoice:   enc.DailyInvoice,
			TimestampMs:    enc.Metadata.T * 1000,
		}
		if err := b.ledger.RecordMessageMeta(txid, meta); err != nil {
			log.Ledger.Warn().Err(err).Msg("record message metadata failed")
		}
	}
	return txid, nil
}

// IsBroadcastRejection reports whether the error came from the node
// rejecting the transaction, in which case manual re-submission of the raw
// hex is a sensible fallback.
func IsBroadcastRejection(err error) bool {
	return errors.Is(err, chaindata.ErrBroadcast)
}
