package messenger

import (
	"encoding/hex"
	"fmt"

	"github.com/hushtx/hushtx/internal/inscription"
	"github.com/hushtx/hushtx/internal/log"
)

// ScanInscriptions walks the wallet's transaction history for one-satoshi
// outputs carrying the inscription envelope and classifies their content.
// The reader's transaction-detail cache is shared, so a message scan and an
// inscription scan over the same history fetch each transaction once.
// historyLimit 0 means the full history. Results are newest first.
func (r *Reader) ScanInscriptions(historyLimit int) ([]inscription.Inscription, error) {
	address := r.identity.Address().String()
	history, err := r.src.GetTransactionHistory(address, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", address, err)
	}

	var found []inscription.Inscription
	for _, item := range history {
		detail, err := r.txDetail(item.TxID)
		if err != nil {
			log.Inscribe.Warn().Str("txid", item.TxID).Err(err).Msg("skipping tx, detail fetch failed")
			continue
		}
		for i, vout := range detail.Vout {
			// Inscription outputs carry exactly the minimal unit; everything
			// else is skipped before any script parsing.
			if vout.Satoshis() != inscription.OutputValue {
				continue
			}
			lockScript, err := hex.DecodeString(vout.Script.Hex)
			if err != nil {
				continue
			}
			contentType, payload, ok := inscription.ParseScript(lockScript)
			if !ok {
				continue
			}
			found = append(found, inscription.Inscription{
				TxID:        item.TxID,
				OutputIndex: uint32(i),
				ContentType: contentType,
				SizeBytes:   len(payload),
				Content:     inscription.Classify(contentType, payload),
			})
		}
	}

	log.Inscribe.Debug().Int("history", len(history)).Int("inscriptions", len(found)).Msg("inscription scan complete")
	return found, nil
}
