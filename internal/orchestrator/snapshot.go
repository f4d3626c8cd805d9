package orchestrator

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/market"
	"github.com/avvvet/defidvisor-core/internal/memory"
	"github.com/avvvet/defidvisor-core/internal/vault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

// WalletView is one wallet's slice of the portfolio snapshot.
type WalletView struct {
	NetworkName  string                 `json:"network_name"`
	Address      string                 `json:"address"`
	Tokens       []wallet.TokenBalance  `json:"tokens"`
	Transactions []explorer.Transaction `json:"transactions"`
	TxError      string                 `json:"tx_error,omitempty"`
}

// PortfolioSnapshot maps wallet network names to their view. It is replaced
// wholesale on each successful refresh and retained as-is on a failed one.
type PortfolioSnapshot struct {
	Wallets   map[string]WalletView `json:"wallets"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// MarketSnapshot holds the news and price history for the currently
// selected token.
type MarketSnapshot struct {
	Token     string              `json:"token"`
	News      []market.Article    `json:"news"`
	Prices    []market.PricePoint `json:"prices"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Conversation returns the append-only conversation log.
func (c *Core) Conversation() []memory.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.conversation)
}

// Portfolio returns the last committed portfolio snapshot, or nil before the
// first successful refresh.
func (c *Core) Portfolio() *PortfolioSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.portfolio
}

// Market returns the last committed market snapshot, or nil.
func (c *Core) Market() *MarketSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marketView
}

// SwapResult returns the response of the last submitted swap, or nil.
func (c *Core) SwapResult() *wallet.TransferResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swapResult
}

// OrderResult returns the last order-status lookup, or nil.
func (c *Core) OrderResult() *wallet.OrderResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderResult
}

// Buckets returns the last committed bucket listing.
func (c *Core) Buckets() []vault.Bucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.buckets)
}

// Files returns the last committed file listing for a bucket.
func (c *Core) Files(bucket string) []vault.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.files[bucket])
}

// appendEntry appends to the conversation snapshot and persists the entry.
// Persistence failures are logged, not surfaced: losing durability must not
// break the visible conversation flow.
func (c *Core) appendEntry(ctx context.Context, entry memory.Entry) []memory.Entry {
	c.mu.Lock()
	c.conversation = append(slices.Clone(c.conversation), entry)
	updated := c.conversation
	c.mu.Unlock()

	if c.conv != nil {
		if err := c.conv.Append(ctx, c.session.ID, c.session.UserID, entry); err != nil {
			c.logger.Warn("failed to persist conversation entry", zap.Error(err))
		}
	}

	c.notify(Event{Kind: EventConversation})
	return updated
}
