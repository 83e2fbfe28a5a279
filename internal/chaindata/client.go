// Package chaindata talks to the external blockchain explorer API, the
// wallet's only view of chain state.
package chaindata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hushtx/hushtx/internal/log"
)

// ErrNetworkFetch marks transient network failures. Idempotent GETs are
// retried once internally before this surfaces.
var ErrNetworkFetch = errors.New("network fetch failed")

// UnspentOutput is one spendable output as reported by the explorer.
type UnspentOutput struct {
	TxID          string `json:"tx_hash"`
	OutputIndex   uint32 `json:"tx_pos"`
	ValueSatoshis uint64 `json:"value"`
}

// HistoryItem is one confirmed transaction touching an address.
type HistoryItem struct {
	TxID            string `json:"tx_hash"`
	TimeUnixSeconds int64  `json:"time"`
}

// TxDetailVin is a decoded transaction input reference.
type TxDetailVin struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// TxDetailVout is a decoded transaction output. The explorer reports values
// in whole-coin units; use Satoshis() for integer math.
type TxDetailVout struct {
	ValueBTC float64 `json:"value"`
	Script   struct {
		Hex string `json:"hex"`
	} `json:"scriptPubKey"`
}

// Satoshis converts the explorer's whole-coin value to satoshis.
func (v TxDetailVout) Satoshis() uint64 {
	return uint64(math.Round(v.ValueBTC * 1e8))
}

// TxDetail is a decoded transaction.
type TxDetail struct {
	TxID string         `json:"txid"`
	Vin  []TxDetailVin  `json:"vin"`
	Vout []TxDetailVout `json:"vout"`
	Time int64          `json:"time"`
}

// Balance is an address balance in satoshis.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

// Source is the chain-data collaborator consumed by the wallet layers.
type Source interface {
	GetUnspentOutputs(address string) ([]UnspentOutput, error)
	GetRawTransaction(txid string) (string, error)
	GetTransactionHistory(address string, limit int) ([]HistoryItem, error)
	GetTransactionDetail(txid string) (*TxDetail, error)
	GetBalance(address string) (*Balance, error)
}

// Client is an HTTP client for an explorer REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the given explorer base URL. apiKey may be
// empty; when set it is attached as a request header (explorers rate-limit
// anonymous callers harder).
func New(baseURL, apiKey string) *Client {
	return NewWithTimeout(baseURL, apiKey, 15*time.Second)
}

// NewWithTimeout creates a client with a custom HTTP timeout.
func NewWithTimeout(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetUnspentOutputs lists spendable outputs for an address.
func (c *Client) GetUnspentOutputs(address string) ([]UnspentOutput, error) {
	var utxos []UnspentOutput
	if err := c.getJSON(fmt.Sprintf("/address/%s/unspent", address), &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// GetRawTransaction fetches the raw transaction hex for a txid.
func (c *Client) GetRawTransaction(txid string) (string, error) {
	body, err := c.get(fmt.Sprintf("/tx/%s/hex", txid))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// GetTransactionHistory lists confirmed transactions for an address, newest
// first. limit 0 means unbounded.
func (c *Client) GetTransactionHistory(address string, limit int) ([]HistoryItem, error) {
	var history []HistoryItem
	if err := c.getJSON(fmt.Sprintf("/address/%s/history", address), &history); err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// GetTransactionDetail fetches the decoded form of a transaction.
func (c *Client) GetTransactionDetail(txid string) (*TxDetail, error) {
	var detail TxDetail
	if err := c.getJSON(fmt.Sprintf("/tx/%s", txid), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetBalance fetches the confirmed/unconfirmed balance for an address.
func (c *Client) GetBalance(address string) (*Balance, error) {
	var balance Balance
	if err := c.getJSON(fmt.Sprintf("/address/%s/balance", address), &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (c *Client) getJSON(path string, result interface{}) error {
	body, err := c.get(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// get performs an idempotent GET with a single retry on transient failure.
func (c *Client) get(path string) ([]byte, error) {
	body, err := c.getOnce(path)
	if err == nil {
		return body, nil
	}
	log.Chain.Debug().Str("path", path).Err(err).Msg("fetch failed, retrying once")
	body, retryErr := c.getOnce(path)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFetch, retryErr)
	}
	return body, nil
}

func (c *Client) getOnce(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
