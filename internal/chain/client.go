package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the settlement API that executes payouts on chain
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a settlement API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the settlement API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("settlement API error: %d - %s", e.StatusCode, e.Body)
}

// Permanent reports whether retrying the same request is pointless
func (e *APIError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// PayoutRequest asks the settlement API to transfer a payout
type PayoutRequest struct {
	ChainID     int    `json:"chain_id"`
	ToAddress   string `json:"to_address"`
	Amount      int64  `json:"amount"`
	GasStrategy string `json:"gas_strategy"`
	Reference   string `json:"reference"`
}

// PayoutReceipt is the settlement API's acknowledgement
type PayoutReceipt struct {
	TxHash string `json:"tx_hash"`
}

// TxStatus reports the on-chain state of a submitted payout
type TxStatus struct {
	Hash          string `json:"hash"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
}

// SubmitPayout submits a payout for on-chain execution
func (c *Client) SubmitPayout(ctx context.Context, payout PayoutRequest) (*PayoutReceipt, error) {
	body, err := json.Marshal(payout)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var receipt PayoutReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// GetTransaction retrieves the status of a payout transaction.
// Returns nil when the settlement API does not know the hash yet.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/transactions/"+hash, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var status TxStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}

// WaitForTransaction polls until the transaction leaves the PENDING state
func (c *Client) WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (*TxStatus, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		status, err := c.GetTransaction(ctx, hash)
		if err != nil {
			return nil, err
		}
		if status != nil && status.Status != TxStatusPending {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	return nil, fmt.Errorf("transaction not settled within timeout")
}
