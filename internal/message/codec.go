package message

import (
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"

	"github.com/hushtx/hushtx/internal/keys"
	"github.com/hushtx/hushtx/internal/ledger"
	"github.com/hushtx/hushtx/internal/log"
	"github.com/hushtx/hushtx/pkg/crypto"
)

// FormatVersion is the current advanced-format version tag.
const FormatVersion = 1

// decryptCacheSize bounds the decrypt result cache. Repeated renders of the
// same conversation hit the cache instead of re-deriving the key chain.
const decryptCacheSize = 256

// cipherPrefixLen is how much ciphertext participates in the cache key.
const cipherPrefixLen = 16

// Codec encrypts and decrypts message envelopes. It owns the invoice
// generation for outgoing messages and a bounded cache of decrypt results.
type Codec struct {
	ledger *ledger.Ledger
	cache  *lru.Cache[string, string]
	now    func() time.Time
}

// NewCodec creates a codec. now is injectable for deterministic tests; nil
// means time.Now.
func NewCodec(led *ledger.Ledger, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	cache, _ := lru.New[string, string](decryptCacheSize)
	return &Codec{ledger: led, cache: cache, now: now}
}

// EncryptResult carries the envelope bytes and the bookkeeping the caller
// needs to persist after broadcast.
type EncryptResult struct {
	Envelope       []byte
	Metadata       Metadata
	InvoiceNumber  string
	DailyInvoice   string
	CounterpartyID string
	Truncated      bool
}

// Encrypt generates the next invoice number for the counterparty, derives
// the message key, and packs the advanced-format envelope. Envelopes above
// MaxEnvelopeSize are truncated with a warning; truncated envelopes may not
// decrypt and callers should surface the Truncated flag.
func (c *Codec) Encrypt(master *crypto.PrivateKey, recipient *crypto.PublicKey, counterpartyID string, plaintext []byte) (*EncryptResult, error) {
	now := c.now().UTC()
	date := now.Format("2006-01-02")

	counter := c.ledger.NextCounter(counterpartyID, date, ledger.PurposeMessage)
	invoice := ledger.Invoice{
		Purpose:   ledger.PurposeMessage,
		Date:      date,
		PubPrefix: keys.PubKeyPrefix(recipient),
		Counter:   counter,
	}.String()
	dailyInvoice := "2-daily-" + date

	conv := keys.DeriveConversationKey(master, recipient, recipient)
	daily := keys.DeriveDailyKey(conv, recipient, date)
	msgKey := keys.DeriveMessageKey(daily, recipient, invoice)

	ciphertext, err := crypto.Seal(msgKey.Bytes(), plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}

	meta := Metadata{
		V: FormatVersion,
		I: invoice,
		D: dailyInvoice,
		T: now.Unix(),
		C: crypto.Checksum8(plaintext),
	}
	env := &Envelope{Metadata: &meta, Ciphertext: ciphertext}
	encoded, err := env.Encode()
	if err != nil {
		return nil, err
	}

	truncated := false
	if len(encoded) > MaxEnvelopeSize {
		log.Message.Warn().
			Int("size", len(encoded)).
			Int("max", MaxEnvelopeSize).
			Str("invoice", invoice).
			Msg("envelope exceeds payload cap, truncating")
		encoded = encoded[:MaxEnvelopeSize]
		truncated = true
	}

	if err := c.ledger.RecordInvoice(counterpartyID, invoice, ""); err != nil {
		return nil, fmt.Errorf("record invoice: %w", err)
	}

	return &EncryptResult{
		Envelope:       encoded,
		Metadata:       meta,
		InvoiceNumber:  invoice,
		DailyInvoice:   dailyInvoice,
		CounterpartyID: counterpartyID,
		Truncated:      truncated,
	}, nil
}

// Decrypt parses the envelope and decrypts it against the sender's key.
// Advanced-format envelopes re-derive the message key from the embedded
// invoice number; legacy envelopes use the single-step ECDH key. A failed
// decryption returns ErrDecryptionMismatch; a checksum mismatch returns the
// plaintext together with ErrIntegrity.
func (c *Codec) Decrypt(master *crypto.PrivateKey, sender *crypto.PublicKey, envelope []byte) (string, *Metadata, error) {
	env, err := ParseEnvelope(envelope)
	if err != nil {
		return "", nil, err
	}

	if env.Metadata == nil {
		key := keys.LegacyKey(master, sender)
		plaintext, err := crypto.Open(key.Bytes(), env.Ciphertext)
		if err != nil {
			return "", nil, fmt.Errorf("%w (legacy format)", ErrDecryptionMismatch)
		}
		return string(plaintext), nil, nil
	}

	meta := env.Metadata
	cacheKey := decryptCacheKey(meta.I, env.Ciphertext)
	if plaintext, ok := c.cache.Get(cacheKey); ok {
		return plaintext, meta, nil
	}

	// The invoice prefix names the message recipient, which scopes the key
	// hierarchy. Our own prefix there means the message was sent to us; the
	// sender's prefix means it is one of our own outgoing messages.
	scope := sender
	if inv, err := ledger.ParseInvoice(meta.I); err == nil {
		if own := master.PublicKey(); keys.PubKeyPrefix(own) == inv.PubPrefix {
			scope = own
		}
	}

	key, err := keys.DeriveMessageKeyFull(master, sender, scope, meta.I)
	if err != nil {
		return "", meta, fmt.Errorf("derive message key: %w", err)
	}
	plaintext, err := crypto.Open(key.Bytes(), env.Ciphertext)
	if err != nil {
		log.Message.Debug().Str("invoice", meta.I).Msg("decryption attempt failed")
		return "", meta, fmt.Errorf("%w (invoice %s)", ErrDecryptionMismatch, meta.I)
	}

	if crypto.Checksum8(plaintext) != meta.C {
		return string(plaintext), meta, fmt.Errorf("%w (invoice %s)", ErrIntegrity, meta.I)
	}

	c.cache.Add(cacheKey, string(plaintext))
	return string(plaintext), meta, nil
}

func decryptCacheKey(invoice string, ciphertext []byte) string {
	prefix := ciphertext
	if len(prefix) > cipherPrefixLen {
		prefix = prefix[:cipherPrefixLen]
	}
	h := blake3.New()
	h.Write([]byte(invoice))
	h.Write(prefix)
	return hex.EncodeToString(h.Sum(nil))
}
