// Package keys implements the hierarchical message-key derivation scheme.
//
// Three one-way steps hang off a single ECDH secret with a counterparty:
//
//	conversationKey = HMAC(ecdh(master, peer), peer || conversation invoice)
//	dailyKey        = HMAC(conversationKey,   peer || "2-daily-" + date)
//	messageKey      = HMAC(dailyKey,          peer || message invoice)
//
// Both sides derive the same keys independently; only the invoice number
// travels (inside message metadata). Compromise of a message key exposes
// neither the daily nor the conversation key.
package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/hushtx/hushtx/pkg/crypto"
)

// KeySize is the length of a derived symmetric key in bytes.
const KeySize = 32

// Key is a derived symmetric encryption key.
type Key [KeySize]byte

// Bytes returns a copy of the key.
func (k Key) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

// PubKeyPrefix returns the 8-hex-char prefix of a compressed public key,
// used to scope invoice numbers to a counterparty.
func PubKeyPrefix(pub *crypto.PublicKey) string {
	return pub.Hex()[:8]
}

// DeriveConversationKey derives the per-counterparty root of the hierarchy.
// peer supplies the ECDH half of the secret; scope is the message recipient
// whose key prefix appears in the invoice numbers. The sender passes the
// counterparty for both; the receiver of a message passes the sender as peer
// and itself as scope, which lands on the identical key because ECDH is
// symmetric and the scope context matches.
func DeriveConversationKey(master *crypto.PrivateKey, peer, scope *crypto.PublicKey) Key {
	secret := crypto.ECDH(master, peer)
	invoice := "2-conversation-" + PubKeyPrefix(scope)
	return hmacDerive(secret.Bytes(), scope, invoice)
}

// DeriveDailyKey derives the key for one UTC calendar day ("YYYY-MM-DD").
func DeriveDailyKey(conversationKey Key, scope *crypto.PublicKey, utcDate string) Key {
	return hmacDerive(conversationKey[:], scope, "2-daily-"+utcDate)
}

// DeriveMessageKey derives the final per-message key from its invoice number.
func DeriveMessageKey(dailyKey Key, scope *crypto.PublicKey, invoiceNumber string) Key {
	return hmacDerive(dailyKey[:], scope, invoiceNumber)
}

// DeriveMessageKeyFull recomputes the whole chain from the master key and
// the message's invoice number. No intermediate keys are cached; identical
// inputs always produce an identical key.
func DeriveMessageKeyFull(master *crypto.PrivateKey, peer, scope *crypto.PublicKey, invoiceNumber string) (Key, error) {
	date, err := dateFromInvoice(invoiceNumber)
	if err != nil {
		return Key{}, err
	}
	conv := DeriveConversationKey(master, peer, scope)
	daily := DeriveDailyKey(conv, scope, date)
	return DeriveMessageKey(daily, scope, invoiceNumber), nil
}

// dateFromInvoice extracts the "YYYY-MM-DD" component from an invoice
// number of the form "2-{purpose}-{YYYY}-{MM}-{DD}-{prefix}-{counter}".
func dateFromInvoice(invoiceNumber string) (string, error) {
	parts := strings.Split(invoiceNumber, "-")
	if len(parts) != 7 || parts[0] != "2" {
		return "", fmt.Errorf("malformed invoice number %q", invoiceNumber)
	}
	return parts[2] + "-" + parts[3] + "-" + parts[4], nil
}

func hmacDerive(parent []byte, counterparty *crypto.PublicKey, invoice string) Key {
	mac := hmac.New(sha256.New, parent)
	mac.Write(counterparty.SerializeCompressed())
	mac.Write([]byte(invoice))
	var k Key
	copy(k[:], mac.Sum(nil))
	return k
}

// LegacyKey derives the single-step plain-ECDH key used by the legacy
// message format (no metadata block). Decryption-only; new messages always
// use the hierarchy above.
func LegacyKey(master *crypto.PrivateKey, counterparty *crypto.PublicKey) Key {
	secret := crypto.ECDH(master, counterparty)
	var k Key
	copy(k[:], secret.Bytes())
	return k
}
