package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

func twoWalletSDK() *stubSDK {
	return &stubSDK{
		portfolio: &wallet.Portfolio{Tokens: []wallet.TokenBalance{
			{TokenName: "MATIC", NetworkName: "POLYGON_TESTNET_AMOY", Quantity: "12.5"},
			{TokenName: "APT", NetworkName: "APTOS_TESTNET", Quantity: "3"},
		}},
		walletSet: &wallet.WalletSet{Wallets: []wallet.Wallet{
			{NetworkName: "POLYGON_TESTNET_AMOY", Address: "0xabc"},
			{NetworkName: "APTOS_TESTNET", Address: "0xdef"},
		}},
	}
}

func TestRefreshPortfolioAggregatesAllWallets(t *testing.T) {
	f := newFixture()
	f.sdk = twoWalletSDK()
	f.core.wallet = f.sdk
	f.resolver.txs = map[string][]explorer.Transaction{
		"POLYGON_TESTNET_AMOY": {{Hash: "0x1", Success: true}},
		"APTOS_TESTNET":        {{Hash: "0x2", Success: false}},
	}

	snap, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Wallets, 2)

	amoy := snap.Wallets["POLYGON_TESTNET_AMOY"]
	assert.Equal(t, "0xabc", amoy.Address)
	require.Len(t, amoy.Tokens, 1)
	assert.Equal(t, "MATIC", amoy.Tokens[0].TokenName)
	require.Len(t, amoy.Transactions, 1)
	assert.Equal(t, "0x1", amoy.Transactions[0].Hash)

	aptos := snap.Wallets["APTOS_TESTNET"]
	assert.Equal(t, "APT", aptos.Tokens[0].TokenName)
	assert.False(t, aptos.Transactions[0].Success)
}

func TestRefreshPortfolioCreatesWalletSetOnce(t *testing.T) {
	f := newFixture()
	f.sdk = twoWalletSDK()
	f.core.wallet = f.sdk

	_, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)
	_, err = f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.sdk.createCalls, "wallet creation is create-if-absent")
}

func TestRefreshPortfolioPrimaryFailureRetainsSnapshot(t *testing.T) {
	f := newFixture()
	f.sdk = twoWalletSDK()
	f.core.wallet = f.sdk

	first, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)

	f.sdk.portfolioErr = errBoom
	got, err := f.core.RefreshPortfolio(context.Background())
	require.Error(t, err)
	assert.Same(t, first, got, "failed refresh keeps the previous snapshot")
	assert.Same(t, first, f.core.Portfolio())
}

func TestRefreshPortfolioPartialFailureIsolation(t *testing.T) {
	f := newFixture()
	f.sdk = twoWalletSDK()
	f.core.wallet = f.sdk
	f.resolver.txs = map[string][]explorer.Transaction{
		"POLYGON_TESTNET_AMOY": {{Hash: "0xold", Success: true}},
		"APTOS_TESTNET":        {{Hash: "0xaptos-old", Success: true}},
	}

	_, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)

	// One wallet's explorer goes down; the other advances.
	f.resolver.errs = map[string]error{"POLYGON_TESTNET_AMOY": errBoom}
	f.resolver.txs["APTOS_TESTNET"] = []explorer.Transaction{{Hash: "0xaptos-new", Success: true}}

	snap, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err, "per-wallet failure does not fail the refresh")

	amoy := snap.Wallets["POLYGON_TESTNET_AMOY"]
	assert.NotEmpty(t, amoy.TxError)
	require.Len(t, amoy.Transactions, 1)
	assert.Equal(t, "0xold", amoy.Transactions[0].Hash, "failed wallet keeps previous transactions")

	aptos := snap.Wallets["APTOS_TESTNET"]
	assert.Empty(t, aptos.TxError)
	assert.Equal(t, "0xaptos-new", aptos.Transactions[0].Hash)
}

func TestRefreshPortfolioStaleGenerationDiscarded(t *testing.T) {
	f := newFixture()
	f.sdk = twoWalletSDK()
	f.core.wallet = f.sdk

	// Simulate a newer refresh having already committed.
	f.core.portfolioGen.Store(5)
	f.core.mu.Lock()
	newer := &PortfolioSnapshot{Wallets: map[string]WalletView{}}
	f.core.portfolio = newer
	f.core.portfolioCommitted = 10
	f.core.mu.Unlock()

	got, err := f.core.RefreshPortfolio(context.Background())
	require.NoError(t, err)
	assert.Same(t, newer, got, "stale result is discarded, newer snapshot stands")
	assert.Same(t, newer, f.core.Portfolio())
}
