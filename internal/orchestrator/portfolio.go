package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/fault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

const opPortfolio = "portfolio.refresh"

// RefreshPortfolio rebuilds the portfolio snapshot.
//
// The primary portfolio fetch comes first; the wallet set is created only if
// none is known yet (creation is create-if-absent on the SDK side). Then one
// transaction fetch per wallet fans out, all issued before any is awaited,
// and the snapshot commits only after every fetch has settled. A failed
// per-wallet fetch keeps that wallet's previously displayed transactions; a
// failed primary fetch keeps the whole previous snapshot. Overlapping
// refreshes reconcile by generation: a stale result never overwrites a newer
// committed snapshot.
func (c *Core) RefreshPortfolio(ctx context.Context) (*PortfolioSnapshot, error) {
	generation := c.portfolioGen.Add(1)

	c.metrics.Begin()
	var opErr error
	defer func() { c.metrics.Settle(opPortfolio, opErr) }()

	portfolio, err := c.wallet.GetPortfolio(ctx)
	if err != nil {
		opErr = err
		c.fail(opPortfolio, fault.Message(err))
		return c.Portfolio(), err
	}

	wallets, err := c.ensureWalletSet(ctx)
	if err != nil {
		opErr = err
		c.fail(opPortfolio, fault.Message(err))
		return c.Portfolio(), err
	}

	// Fan-out: every per-wallet fetch is issued before any is awaited, so a
	// slow wallet cannot delay issuance for the others.
	type txResult struct {
		txs []explorer.Transaction
		err error
	}
	results := make([]txResult, len(wallets))

	var group errgroup.Group
	for i, w := range wallets {
		i, w := i, w
		group.Go(func() error {
			txs, err := c.resolver.Transactions(ctx, w.NetworkName, w.Address)
			results[i] = txResult{txs: txs, err: err}
			return nil
		})
	}
	_ = group.Wait() // goroutines report through results, never an error

	views := make(map[string]WalletView, len(wallets))

	c.mu.Lock()
	previous := c.portfolio
	for i, w := range wallets {
		view := WalletView{
			NetworkName: w.NetworkName,
			Address:     w.Address,
			Tokens:      tokensForNetwork(portfolio, w.NetworkName),
		}
		if results[i].err != nil {
			// Partial-failure isolation: keep what was already on screen
			// for this wallet instead of blanking it.
			view.TxError = fault.Message(results[i].err)
			if previous != nil {
				if old, ok := previous.Wallets[w.NetworkName]; ok {
					view.Transactions = old.Transactions
				}
			}
			opErr = results[i].err
		} else {
			view.Transactions = results[i].txs
		}
		views[w.NetworkName] = view
	}

	snapshot := &PortfolioSnapshot{Wallets: views, FetchedAt: time.Now()}

	if generation <= c.portfolioCommitted {
		// A newer refresh already committed; discard this result.
		current := c.portfolio
		c.mu.Unlock()
		c.logger.Debug("discarding stale portfolio refresh",
			zap.Uint64("generation", generation))
		return current, nil
	}
	c.portfolio = snapshot
	c.portfolioCommitted = generation
	c.mu.Unlock()

	c.notify(Event{Kind: EventPortfolio})
	if opErr != nil {
		c.fail(opPortfolio, fault.Message(opErr))
	}
	return snapshot, nil
}

// ensureWalletSet returns the known wallet set, creating one only when none
// exists yet. Repeated refreshes never trigger duplicate creation.
func (c *Core) ensureWalletSet(ctx context.Context) ([]wallet.Wallet, error) {
	c.mu.Lock()
	cached := c.walletSet
	c.mu.Unlock()

	if cached != nil && len(cached.Wallets) > 0 {
		return cached.Wallets, nil
	}

	set, err := c.wallet.CreateWallet(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.walletSet = set
	c.mu.Unlock()
	return set.Wallets, nil
}

func tokensForNetwork(p *wallet.Portfolio, network string) []wallet.TokenBalance {
	var tokens []wallet.TokenBalance
	for _, token := range p.Tokens {
		if token.NetworkName == network {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
