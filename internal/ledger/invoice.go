// Package ledger tracks invoice numbers and message metadata so both
// parties can re-derive message keys deterministically without ever
// transmitting the keys themselves.
package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Invoice purposes. The purpose scopes the daily counter: two messages sent
// the same day for different purposes never share an invoice number.
const (
	PurposeMessage      = "msg"
	PurposeConversation = "conversation"
	PurposeDaily        = "daily"
)

// Invoice is a structured invoice number:
// "2-{purpose}-{YYYY}-{MM}-{DD}-{counterpartyPrefix}-{counter}".
// The string form must be reproducible byte-for-byte; it is the only thing
// that travels between the two parties.
type Invoice struct {
	Purpose   string
	Date      string // "YYYY-MM-DD" in UTC
	PubPrefix string // 8-hex-char counterparty public key prefix
	Counter   int
}

// String renders the canonical invoice number.
func (i Invoice) String() string {
	return fmt.Sprintf("2-%s-%s-%s-%d", i.Purpose, i.Date, i.PubPrefix, i.Counter)
}

// ParseInvoice parses a canonical invoice number string.
func ParseInvoice(s string) (Invoice, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 7 || parts[0] != "2" {
		return Invoice{}, fmt.Errorf("malformed invoice number %q", s)
	}
	counter, err := strconv.Atoi(parts[6])
	if err != nil || counter < 1 {
		return Invoice{}, fmt.Errorf("malformed invoice counter in %q", s)
	}
	return Invoice{
		Purpose:   parts[1],
		Date:      parts[2] + "-" + parts[3] + "-" + parts[4],
		PubPrefix: parts[5],
		Counter:   counter,
	}, nil
}
