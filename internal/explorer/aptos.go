package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

// AptosFullnode fetches account transactions from an Aptos fullnode API.
type AptosFullnode struct {
	httpClient *http.Client
	baseURL    string
}

func NewAptosFullnode(baseURL string, timeout time.Duration) *AptosFullnode {
	return &AptosFullnode{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type aptosTx struct {
	Hash      string `json:"hash"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"` // microseconds since epoch, as a string
}

func (a *AptosFullnode) Transactions(ctx context.Context, address string) ([]Transaction, error) {
	const op = "explorer.aptos"

	target := a.baseURL + "/v1/accounts/" + url.PathEscape(address) + "/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	// The fullnode answers 404 for addresses without on-chain activity.
	if resp.StatusCode == http.StatusNotFound {
		return []Transaction{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fault.FromStatus(op, resp.StatusCode)
	}

	var body []aptosTx
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fault.Wrap(fault.MalformedResponse, op, "failed to decode response", err)
	}

	txs := make([]Transaction, 0, len(body))
	for _, tx := range body {
		micros, _ := strconv.ParseInt(tx.Timestamp, 10, 64)
		txs = append(txs, Transaction{
			Hash:      tx.Hash,
			Success:   tx.Success,
			Timestamp: micros / 1_000_000,
		})
	}
	return txs, nil
}
