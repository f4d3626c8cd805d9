package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/fault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

const (
	opSwap  = "swap.submit"
	opOrder = "order.check"
)

// SwapRequest describes a cross-network swap. Immutable once submitted; the
// resulting response is stored separately and never conflated with it.
type SwapRequest struct {
	FromNetwork  string `json:"from_network"`
	ToNetwork    string `json:"to_network"`
	TokenAddress string `json:"token_address"`
	Quantity     string `json:"quantity"`
}

// SubmitSwap validates, resolves wallet addresses for both networks, and
// executes the transfer. Validation and address resolution happen before any
// transfer call; if either fails, no transfer is issued.
func (c *Core) SubmitSwap(ctx context.Context, req SwapRequest) (*wallet.TransferResponse, error) {
	if err := validateSwap(req); err != nil {
		// Fail fast: no network call is ever made for invalid input.
		return nil, err
	}

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opSwap, opErr) }()

	set, err := c.ensureWalletSet(ctx)
	if err != nil {
		opErr = err
		c.fail(opSwap, fault.Message(err))
		return nil, err
	}

	fromAddress, ok := resolveAddress(set, req.FromNetwork)
	if !ok {
		opErr = fault.New(fault.NotFound, opSwap,
			fmt.Sprintf("no wallet on network %q", req.FromNetwork))
		c.fail(opSwap, fault.Message(opErr))
		return nil, opErr
	}
	toAddress, ok := resolveAddress(set, req.ToNetwork)
	if !ok {
		opErr = fault.New(fault.NotFound, opSwap,
			fmt.Sprintf("no wallet on network %q", req.ToNetwork))
		c.fail(opSwap, fault.Message(opErr))
		return nil, opErr
	}

	c.logger.Info("executing swap",
		zap.String("from_network", req.FromNetwork),
		zap.String("to_network", req.ToNetwork),
		zap.String("from_address", fromAddress),
		zap.String("to_address", toAddress))

	resp, err := c.wallet.TransferTokens(ctx, wallet.TransferRequest{
		NetworkName:      req.FromNetwork,
		TokenAddress:     req.TokenAddress,
		Quantity:         req.Quantity,
		RecipientAddress: toAddress,
	})
	if err != nil {
		opErr = err
		c.fail(opSwap, fault.Message(err))
		return nil, err
	}

	c.mu.Lock()
	c.swapResult = resp
	c.mu.Unlock()

	c.notify(Event{Kind: EventSwap})
	return resp, nil
}

// CheckOrderStatus is a single-request passthrough, no retries.
func (c *Core) CheckOrderStatus(ctx context.Context, orderID string) (*wallet.OrderResponse, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fault.New(fault.ValidationError, opOrder, "order_id is required")
	}

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opOrder, opErr) }()

	resp, err := c.wallet.OrderHistory(ctx, orderID)
	if err != nil {
		opErr = err
		c.fail(opOrder, fault.Message(err))
		return nil, err
	}

	c.mu.Lock()
	c.orderResult = resp
	c.mu.Unlock()

	c.notify(Event{Kind: EventOrder})
	return resp, nil
}

func validateSwap(req SwapRequest) error {
	required := []struct {
		field, value string
	}{
		{"from_network", req.FromNetwork},
		{"to_network", req.ToNetwork},
		{"token_address", req.TokenAddress},
		{"quantity", req.Quantity},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fault.New(fault.ValidationError, opSwap, f.field+" is required")
		}
	}
	return nil
}

// resolveAddress finds the wallet address for a network. The wallet SDK
// reports canonical identifiers like POLYGON_TESTNET_AMOY while users submit
// short names like "polygon", so matching is by case-insensitive prefix
// containment.
func resolveAddress(wallets []wallet.Wallet, network string) (string, bool) {
	needle := strings.ToUpper(strings.TrimSpace(network))
	for _, w := range wallets {
		if strings.Contains(strings.ToUpper(w.NetworkName), needle) {
			return w.Address, true
		}
	}
	return "", false
}
