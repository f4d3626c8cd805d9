package explorer

import (
	"context"
)

// Transaction is the single normalized shape all chain explorers resolve to.
// Each explorer speaks its own API; nothing outside this package sees those.
type Transaction struct {
	Hash        string `json:"hash"`
	Success     bool   `json:"success"`
	Value       string `json:"value,omitempty"`
	TokenSymbol string `json:"token_symbol,omitempty"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
}

// Fetcher fetches the transaction history of one address on one chain.
type Fetcher interface {
	Transactions(ctx context.Context, address string) ([]Transaction, error)
}

// Resolver maps wallet network identifiers to chain explorers. Networks
// without a registered explorer resolve to an empty transaction list rather
// than an error: an unrecognized chain is a display gap, not a failure.
type Resolver struct {
	fetchers map[string]Fetcher
}

func NewResolver() *Resolver {
	return &Resolver{
		fetchers: make(map[string]Fetcher),
	}
}

// Register binds a network identifier to its explorer.
func (r *Resolver) Register(network string, fetcher Fetcher) {
	r.fetchers[network] = fetcher
}

// Supports reports whether transactions can be resolved for a network.
func (r *Resolver) Supports(network string) bool {
	_, ok := r.fetchers[network]
	return ok
}

// Transactions resolves the history for an address on the given network.
func (r *Resolver) Transactions(ctx context.Context, network, address string) ([]Transaction, error) {
	fetcher, ok := r.fetchers[network]
	if !ok {
		return []Transaction{}, nil
	}
	return fetcher.Transactions(ctx, address)
}
