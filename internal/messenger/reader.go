package messenger

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/hushtx/hushtx/internal/chaindata"
	"github.com/hushtx/hushtx/internal/ledger"
	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/internal/message"
	"github.com/hushtx/hushtx/internal/wallet"
	"github.com/hushtx/hushtx/pkg/crypto"
	"github.com/hushtx/hushtx/pkg/script"
	"github.com/hushtx/hushtx/pkg/types"
)

// scanCacheTTL bounds how stale a cached scan may be. Chain history only
// grows, so a short TTL trades a minute of lag for not hammering the
// explorer on every screen refresh.
const scanCacheTTL = 60 * time.Second

// placeholderPrefixLen is how many ciphertext bytes appear in the
// undecryptable-message placeholder.
const placeholderPrefixLen = 8

// Reader recovers messages from chain history for one wallet identity. It
// caches scan results briefly and decoded transactions indefinitely
// (confirmed transactions are immutable).
type Reader struct {
	identity *wallet.Identity
	src      chaindata.Source
	codec    *message.Codec
	ledger   *ledger.Ledger
	now      func() time.Time

	mu      sync.Mutex
	scans   map[string]scanEntry
	details map[string]*chaindata.TxDetail
}

type scanEntry struct {
	at       time.Time
	messages []OnChainMessage
}

// NewReader creates a chain message reader. now is injectable for
// deterministic tests; nil means time.Now.
func NewReader(identity *wallet.Identity, src chaindata.Source, codec *message.Codec, led *ledger.Ledger, now func() time.Time) *Reader {
	if now == nil {
		now = time.Now
	}
	return &Reader{
		identity: identity,
		src:      src,
		codec:    codec,
		ledger:   led,
		now:      now,
		scans:    make(map[string]scanEntry),
		details:  make(map[string]*chaindata.TxDetail),
	}
}

// Scan walks the wallet's transaction history and recovers every
// protocol-tagged message, trying each known counterparty key in turn.
// Messages that no key decrypts are kept as placeholders; they become
// readable later via ReDecrypt once metadata arrives (ledger import).
// historyLimit 0 means the full history.
func (r *Reader) Scan(counterparties []wallet.Counterparty, historyLimit int) ([]OnChainMessage, error) {
	key := r.scanKey(counterparties, historyLimit)
	r.mu.Lock()
	if entry, ok := r.scans[key]; ok && r.now().Sub(entry.at) < scanCacheTTL {
		out := append([]OnChainMessage(nil), entry.messages...)
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	address := r.identity.Address().String()
	history, err := r.src.GetTransactionHistory(address, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", address, err)
	}

	var messages []OnChainMessage
	for _, item := range history {
		detail, err := r.txDetail(item.TxID)
		if err != nil {
			log.Message.Warn().Str("txid", item.TxID).Err(err).Msg("skipping tx, detail fetch failed")
			continue
		}
		timestamp := detail.Time
		if timestamp == 0 {
			timestamp = item.TimeUnixSeconds
		}
		for _, vout := range detail.Vout {
			lockScript, err := hex.DecodeString(vout.Script.Hex)
			if err != nil {
				continue
			}
			envelope, ok := message.ParseDataScript(lockScript)
			if !ok {
				continue
			}
			messages = append(messages, r.recoverMessage(item.TxID, timestamp, envelope, detail, counterparties))
		}
	}
	sortByTimestamp(messages)

	r.mu.Lock()
	r.scans[key] = scanEntry{at: r.now(), messages: append([]OnChainMessage(nil), messages...)}
	r.mu.Unlock()

	log.Message.Debug().Int("history", len(history)).Int("messages", len(messages)).Msg("chain scan complete")
	return messages, nil
}

// recoverMessage attributes and decrypts one envelope. Ledger metadata, when
// present, names the counterparty directly; otherwise every known key is
// tried. Failure to decrypt is an expected outcome, not an error.
func (r *Reader) recoverMessage(txid string, timestampSec int64, envelope []byte, detail *chaindata.TxDetail, counterparties []wallet.Counterparty) OnChainMessage {
	msg := OnChainMessage{
		TxID:              txid,
		TimestampMs:       timestampSec * 1000,
		RawCiphertextHex:  hex.EncodeToString(envelope),
		EncryptionVariant: envelopeVariant(envelope),
		Placeholder:       true,
		Plaintext:         placeholderText(envelope),
	}
	if env, err := message.ParseEnvelope(envelope); err == nil && env.Metadata != nil {
		msg.InvoiceID = env.Metadata.I
		if env.Metadata.T > 0 {
			msg.TimestampMs = env.Metadata.T * 1000
		}
	}

	candidates := counterparties
	if meta, ok := r.ledger.MessageMetaByTxID(txid); ok {
		for _, c := range counterparties {
			if c.ID == meta.CounterpartyID {
				candidates = []wallet.Counterparty{c}
				break
			}
		}
	}

	for _, c := range candidates {
		cpKey, err := c.Key()
		if err != nil {
			continue
		}
		plaintext, meta, err := r.codec.Decrypt(r.identity.PrivateKey(), cpKey, envelope)
		suspect := errors.Is(err, message.ErrIntegrity)
		if err != nil && !suspect {
			continue
		}

		msg.Plaintext = plaintext
		msg.Placeholder = false
		msg.Suspect = suspect
		msg.CounterpartyID = c.ID
		if meta != nil {
			msg.InvoiceID = meta.I
			msg.EncryptionVariant = VariantAdvanced
		} else {
			msg.EncryptionVariant = VariantLegacy
		}
		r.attribute(&msg, c, cpKey, detail)
		if suspect {
			log.Message.Warn().Str("txid", txid).Msg("message checksum mismatch, content may be corrupted")
		}
		break
	}
	return msg
}

// attribute decides message direction. A transaction with change pays both
// parties, so outputs alone are ambiguous; input ownership is authoritative
// (a message we sent spends our own coins).
func (r *Reader) attribute(msg *OnChainMessage, c wallet.Counterparty, cpKey *crypto.PublicKey, detail *chaindata.TxDetail) {
	cpAddr := crypto.AddressFromPubKey(cpKey.SerializeCompressed())
	ownAddr := r.identity.Address()

	msg.IsFromSelf = r.sentBySelf(detail, ownAddr, cpAddr)
	if msg.IsFromSelf {
		msg.SenderRef = ownAddr.String()
		msg.RecipientRef = cpAddr.String()
	} else {
		msg.SenderRef = cpAddr.String()
		msg.RecipientRef = ownAddr.String()
	}
}

// sentBySelf resolves the first input's previous output and checks whether it
// pays our own address. When the input's source transaction cannot be
// resolved, it falls back to the payment-output heuristic.
func (r *Reader) sentBySelf(detail *chaindata.TxDetail, ownAddr, cpAddr types.Address) bool {
	for _, vin := range detail.Vin {
		prev, err := r.txDetail(vin.TxID)
		if err != nil || int(vin.Vout) >= len(prev.Vout) {
			break
		}
		lockScript, err := hex.DecodeString(prev.Vout[vin.Vout].Script.Hex)
		if err != nil {
			break
		}
		if addr, ok := script.ParseP2PKH(lockScript); ok {
			return addr == ownAddr
		}
		break
	}
	return paysAddress(detail, cpAddr) && !paysAddress(detail, ownAddr)
}

func paysAddress(detail *chaindata.TxDetail, addr types.Address) bool {
	for _, vout := range detail.Vout {
		lockScript, err := hex.DecodeString(vout.Script.Hex)
		if err != nil {
			continue
		}
		if parsed, ok := script.ParseP2PKH(lockScript); ok && parsed == addr {
			return true
		}
	}
	return false
}

// envelopeVariant classifies an envelope without decrypting it.
func envelopeVariant(envelope []byte) EncryptionVariant {
	env, err := message.ParseEnvelope(envelope)
	if err != nil {
		return VariantUnknown
	}
	if env.Metadata != nil {
		return VariantAdvanced
	}
	return VariantLegacy
}

// placeholderText renders the stand-in for a message no key decrypts.
func placeholderText(envelope []byte) string {
	cipher := envelope
	if env, err := message.ParseEnvelope(envelope); err == nil {
		cipher = env.Ciphertext
	}
	if len(cipher) > placeholderPrefixLen {
		cipher = cipher[:placeholderPrefixLen]
	}
	return fmt.Sprintf("[Encrypted: %s...]", hex.EncodeToString(cipher))
}

// ReDecrypt retries placeholder messages against ledger metadata, typically
// after a backup import added the invoice records needed for key
// derivation. Already-decrypted messages pass through untouched, so the
// operation is idempotent.
func (r *Reader) ReDecrypt(messages []OnChainMessage, counterparties []wallet.Counterparty) []OnChainMessage {
	byID := make(map[string]wallet.Counterparty, len(counterparties))
	for _, c := range counterparties {
		byID[c.ID] = c
	}

	out := make([]OnChainMessage, len(messages))
	recovered := 0
	for i, msg := range messages {
		out[i] = msg
		if !msg.Placeholder {
			continue
		}
		meta, ok := r.ledger.MessageMetaByTxID(msg.TxID)
		if !ok {
			continue
		}
		c, ok := byID[meta.CounterpartyID]
		if !ok {
			continue
		}
		cpKey, err := c.Key()
		if err != nil {
			continue
		}
		envelope, err := hex.DecodeString(msg.RawCiphertextHex)
		if err != nil {
			continue
		}
		plaintext, envMeta, err := r.codec.Decrypt(r.identity.PrivateKey(), cpKey, envelope)
		suspect := errors.Is(err, message.ErrIntegrity)
		if err != nil && !suspect {
			continue
		}

		out[i].Plaintext = plaintext
		out[i].Placeholder = false
		out[i].Suspect = suspect
		out[i].CounterpartyID = c.ID
		if envMeta != nil {
			out[i].InvoiceID = envMeta.I
			out[i].EncryptionVariant = VariantAdvanced
		} else {
			out[i].EncryptionVariant = VariantLegacy
		}
		recovered++
	}
	if recovered > 0 {
		log.Message.Info().Int("recovered", recovered).Msg("re-decryption recovered messages")
	}
	return out
}

// OrganizeIntoThreads groups messages into per-counterparty threads,
// messages oldest first within a thread, threads ordered by most recent
// activity. Messages with no attributed counterparty share one thread keyed
// by sender reference.
func OrganizeIntoThreads(messages []OnChainMessage) []ConversationThread {
	grouped := make(map[string][]OnChainMessage)
	for _, msg := range messages {
		key := msg.CounterpartyID
		if key == "" {
			key = msg.SenderRef
		}
		if key == "" {
			key = "unknown"
		}
		grouped[key] = append(grouped[key], msg)
	}

	threads := make([]ConversationThread, 0, len(grouped))
	for id, msgs := range grouped {
		sortByTimestamp(msgs)
		threads = append(threads, ConversationThread{CounterpartyID: id, Messages: msgs})
	}
	sort.Slice(threads, func(i, j int) bool {
		ti := threads[i].Messages[len(threads[i].Messages)-1].TimestampMs
		tj := threads[j].Messages[len(threads[j].Messages)-1].TimestampMs
		if ti != tj {
			return ti > tj
		}
		return threads[i].CounterpartyID < threads[j].CounterpartyID
	})
	return threads
}

// txDetail fetches a decoded transaction through the immutable cache.
func (r *Reader) txDetail(txid string) (*chaindata.TxDetail, error) {
	r.mu.Lock()
	if detail, ok := r.details[txid]; ok {
		r.mu.Unlock()
		return detail, nil
	}
	r.mu.Unlock()

	detail, err := r.src.GetTransactionDetail(txid)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.details[txid] = detail
	r.mu.Unlock()
	return detail, nil
}

// scanKey fingerprints the scan parameters so a contact change invalidates
// the cache.
func (r *Reader) scanKey(counterparties []wallet.Counterparty, historyLimit int) string {
	h := blake3.New()
	h.Write([]byte(r.identity.Address().String()))
	h.Write([]byte(strconv.Itoa(historyLimit)))
	ids := make([]string, 0, len(counterparties))
	for _, c := range counterparties {
		ids = append(ids, c.ID+"="+c.PublicKey)
	}
	sort.Strings(ids)
	for _, id := range ids {
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
