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

// PolygonScan fetches account transactions from a polygonscan-style API.
type PolygonScan struct {
	httpClient *http.Client
	baseURL    string
}

func NewPolygonScan(baseURL string, timeout time.Duration) *PolygonScan {
	return &PolygonScan{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type polygonTx struct {
	Hash        string `json:"hash"`
	IsError     string `json:"isError"`
	Value       string `json:"value"`
	TokenSymbol string `json:"tokenSymbol"`
	TimeStamp   string `json:"timeStamp"`
}

func (p *PolygonScan) Transactions(ctx context.Context, address string) ([]Transaction, error) {
	const op = "explorer.polygon"

	query := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"sort":       {"desc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api?"+query.Encode(), nil)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "failed to build request", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.NetworkFailure, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fault.FromStatus(op, resp.StatusCode)
	}

	var body struct {
		Status  string      `json:"status"`
		Message string      `json:"message"`
		Result  []polygonTx `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fault.Wrap(fault.MalformedResponse, op, "failed to decode response", err)
	}

	// status "0" with an empty result is how the scan API says "no activity".
	if body.Status != "1" {
		return []Transaction{}, nil
	}

	txs := make([]Transaction, 0, len(body.Result))
	for _, tx := range body.Result {
		ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
		txs = append(txs, Transaction{
			Hash:        tx.Hash,
			Success:     tx.IsError == "0",
			Value:       tx.Value,
			TokenSymbol: tx.TokenSymbol,
			Timestamp:   ts,
		})
	}
	return txs, nil
}
