package chaindata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBroadcast marks a node rejection or submission failure. The underlying
// node message is preserved verbatim for display. Broadcast is never
// retried automatically; a retry could double-submit.
var ErrBroadcast = errors.New("broadcast failed")

// Broadcaster is the transaction submission collaborator.
type Broadcaster interface {
	// Submit sends a raw transaction and returns the accepted txid.
	Submit(rawTxHex string) (string, error)
}

// BroadcastClient submits raw transactions to a broadcast endpoint.
type BroadcastClient struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewBroadcaster creates a broadcast client for the given endpoint URL.
func NewBroadcaster(url, apiKey string) *BroadcastClient {
	return &BroadcastClient{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the raw transaction. On rejection the node's error text is
// wrapped in ErrBroadcast and surfaced unmodified.
func (b *BroadcastClient) Submit(rawTxHex string) (string, error) {
	payload, err := json.Marshal(map[string]string{"txhex": rawTxHex})
	if err != nil {
		return "", fmt.Errorf("marshal broadcast request: %w", err)
	}

	resp, err := b.post(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	// Endpoints answer either a bare txid string or {"txid": "..."}.
	trimmed := strings.TrimSpace(string(resp))
	if strings.HasPrefix(trimmed, "{") {
		var result struct {
			TxID string `json:"txid"`
		}
		if err := json.Unmarshal(resp, &result); err != nil || result.TxID == "" {
			return "", fmt.Errorf("%w: unrecognized response %q", ErrBroadcast, trimmed)
		}
		return result.TxID, nil
	}
	return strings.Trim(trimmed, `"`), nil
}

func (b *BroadcastClient) post(payload []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("X-API-Key", b.apiKey)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node rejected transaction: %s", strings.TrimSpace(string(body)))
	}
	return body, nil
}
