// Package chain is the client for the blockchain node API: read-only contract
// calls, transaction broadcast, and transaction status queries.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// Client is the HTTP client for the chain node API.
type Client struct {
	baseURL    string
	network    string
	httpClient *http.Client
}

// New creates a chain API client. baseURL is the node API root, e.g.
// "http://localhost:3999"; network names the target chain ("devnet",
// "testnet", "mainnet").
func New(baseURL, network string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		network: network,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Network returns the configured chain network name.
func (c *Client) Network() string {
	return c.network
}

// CallReadOnly invokes a read-only contract function and returns the raw
// result string the node reports. sender is the caller principal; args are
// already-encoded argument values.
func (c *Client) CallReadOnly(ctx context.Context, contractAddr, contractName, function, sender string, args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	payload := map[string]any{
		"sender":    sender,
		"arguments": args,
	}

	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s",
		url.PathEscape(contractAddr), url.PathEscape(contractName), url.PathEscape(function))

	body, err := c.post(ctx, path, payload)
	if err != nil {
		return "", fmt.Errorf("chain: call %s.%s: %w", contractName, function, err)
	}

	var resp struct {
		Okay   bool   `json:"okay"`
		Result string `json:"result"`
		Cause  string `json:"cause"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chain: decode call-read response: %w", err)
	}
	if !resp.Okay {
		return "", fmt.Errorf("chain: call %s.%s failed: %s", contractName, function, resp.Cause)
	}
	return resp.Result, nil
}

// GetTransaction returns the current receipt for a transaction id.
func (c *Client) GetTransaction(ctx context.Context, txID string) (domain.TxReceipt, error) {
	body, err := c.get(ctx, "/extended/v1/tx/"+url.PathEscape(txID))
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("chain: get tx %s: %w", txID, err)
	}

	var resp struct {
		TxID        string `json:"tx_id"`
		TxStatus    string `json:"tx_status"`
		BlockHeight uint64 `json:"block_height"`
		TxResult    struct {
			Repr string `json:"repr"`
		} `json:"tx_result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.TxReceipt{}, fmt.Errorf("chain: decode tx response: %w", err)
	}

	return domain.TxReceipt{
		TxID:        resp.TxID,
		Status:      domain.TxStatus(resp.TxStatus),
		BlockHeight: resp.BlockHeight,
		Result:      resp.TxResult.Repr,
		ObservedAt:  time.Now().UTC(),
	}, nil
}

// GetBlockHeight returns the current chain tip height.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	body, err := c.get(ctx, "/v2/info")
	if err != nil {
		return 0, fmt.Errorf("chain: get info: %w", err)
	}

	var resp struct {
		StacksTipHeight uint64 `json:"stacks_tip_height"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("chain: decode info response: %w", err)
	}
	return resp.StacksTipHeight, nil
}

// Broadcast submits a serialized signed transaction and returns its tx id.
func (c *Client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transactions", bytes.NewReader(rawTx))
	if err != nil {
		return "", fmt.Errorf("chain: create broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chain: broadcast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chain: read broadcast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chain: broadcast rejected (HTTP %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	// The node returns the tx id as a bare JSON string.
	var txID string
	if err := json.Unmarshal(body, &txID); err != nil {
		return "", fmt.Errorf("chain: decode broadcast response: %w", err)
	}
	return txID, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, bytes.TrimSpace(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, bytes.TrimSpace(body))
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}
