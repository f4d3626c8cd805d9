package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

// SDK is the wallet/portfolio surface the orchestration core depends on.
// Every method may fail independently; none of them retries.
type SDK interface {
	GetPortfolio(ctx context.Context) (*Portfolio, error)
	CreateWallet(ctx context.Context) (*WalletSet, error)
	TransferTokens(ctx context.Context, req TransferRequest) (*TransferResponse, error)
	OrderHistory(ctx context.Context, orderID string) (*OrderResponse, error)
}

// Client talks to the wallet SDK's REST API with a per-session bearer token.
// The token lives on the client value, not in a package global, so its
// lifecycle is tied to login/logout of the owning session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// envelope is the SDK's uniform response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) GetPortfolio(ctx context.Context) (*Portfolio, error) {
	var portfolio Portfolio
	if err := c.call(ctx, "wallet.portfolio", http.MethodGet, "/api/v1/portfolio", nil, &portfolio); err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// CreateWallet asks the SDK for the user's wallet set, creating wallets on
// networks that do not have one yet. The SDK call is idempotent.
func (c *Client) CreateWallet(ctx context.Context) (*WalletSet, error) {
	var set WalletSet
	if err := c.call(ctx, "wallet.create", http.MethodPost, "/api/v1/wallet", struct{}{}, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) TransferTokens(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.call(ctx, "wallet.transfer", http.MethodPost, "/api/v1/transfer/tokens/execute", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) OrderHistory(ctx context.Context, orderID string) (*OrderResponse, error) {
	path := "/api/v1/orders?" + url.Values{"order_id": {orderID}}.Encode()

	var resp OrderResponse
	if err := c.call(ctx, "wallet.orders", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fault.Wrap(fault.ValidationError, op, "failed to encode payload", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fault.FromStatus(op, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fault.Wrap(fault.MalformedResponse, op, "failed to decode response", err)
	}
	if env.Status != "success" {
		return fault.New(fault.BackendError, op, fmt.Sprintf("SDK reported status %q", env.Status))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fault.Wrap(fault.MalformedResponse, op, "unexpected data shape", err)
	}
	return nil
}
