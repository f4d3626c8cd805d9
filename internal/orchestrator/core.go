package orchestrator

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/advisor"
	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/market"
	"github.com/avvvet/defidvisor-core/internal/memory"
	"github.com/avvvet/defidvisor-core/internal/metrics"
	"github.com/avvvet/defidvisor-core/internal/vault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

// Session is the explicit user context the core operates in. It replaces any
// notion of ambient globals: auth material lives in the collaborator clients
// constructed for this session, and Close tears the whole thing down.
type Session struct {
	ID     string
	UserID string
}

// MarketData is the market-data surface the core consumes.
type MarketData interface {
	News(ctx context.Context, keyword string, pageSize int) ([]market.Article, error)
	PriceHistory(ctx context.Context, tokenID string) ([]market.PricePoint, error)
	TopMarkets(ctx context.Context, limit int) ([]market.Coin, error)
}

// TxResolver resolves per-chain transaction history by network identifier.
type TxResolver interface {
	Transactions(ctx context.Context, network, address string) ([]explorer.Transaction, error)
}

// VaultAPI is the object-storage surface the core consumes.
type VaultAPI interface {
	ListBuckets(ctx context.Context) ([]vault.Bucket, error)
	CreateBucket(ctx context.Context, name string) (*vault.Bucket, error)
	ListFiles(ctx context.Context, bucket string) ([]vault.File, error)
	UploadFile(ctx context.Context, bucket, filename string, content io.Reader) (*vault.File, error)
	DownloadFile(ctx context.Context, bucket, name string) ([]byte, error)
}

// ConversationLog persists conversation entries and rebuilds advisor prompt
// context. Implemented by memory.Manager.
type ConversationLog interface {
	Append(ctx context.Context, sessionID, userID string, entry memory.Entry) error
	History(ctx context.Context, sessionID string) ([]advisor.Turn, error)
	Entries(ctx context.Context, sessionID string) ([]memory.Entry, error)
}

// Core is the async orchestration core. It exclusively owns every in-flight
// request and the current snapshot of each entity; the presentation layer
// only reads snapshots and submits new intents. Snapshots are replaced
// wholesale, never field-mutated, so every update is one discrete transition.
type Core struct {
	session  Session
	provider advisor.Provider
	market   MarketData
	wallet   wallet.SDK
	resolver TxResolver
	vault    VaultAPI
	conv     ConversationLog
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// chat is single-flight; these counters order snapshot commits so a
	// stale response can never overwrite a newer one.
	chatInFlight atomic.Bool
	portfolioGen atomic.Uint64
	marketGen    atomic.Uint64

	mu                 sync.Mutex
	portfolioCommitted uint64
	marketCommitted    uint64
	conversation       []memory.Entry
	walletSet          *wallet.WalletSet
	portfolio          *PortfolioSnapshot
	marketView         *MarketSnapshot
	swapResult         *wallet.TransferResponse
	orderResult        *wallet.OrderResponse
	buckets            []vault.Bucket
	files              map[string][]vault.File

	subMu       sync.RWMutex
	subscribers map[uint64]Handler
	nextSubID   uint64
}

// Deps bundles the collaborators a Core is constructed with.
type Deps struct {
	Provider advisor.Provider
	Market   MarketData
	Wallet   wallet.SDK
	Resolver TxResolver
	Vault    VaultAPI
	Log      ConversationLog
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func New(session Session, deps Deps) *Core {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Core{
		session:     session,
		provider:    deps.Provider,
		market:      deps.Market,
		wallet:      deps.Wallet,
		resolver:    deps.Resolver,
		vault:       deps.Vault,
		conv:        deps.Log,
		logger:      logger,
		metrics:     deps.Metrics,
		files:       make(map[string][]vault.File),
		subscribers: make(map[uint64]Handler),
	}
}

// Restore loads the session's persisted conversation into the snapshot.
func (c *Core) Restore(ctx context.Context) error {
	if c.conv == nil {
		return nil
	}

	entries, err := c.conv.Entries(ctx, c.session.ID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conversation = entries
	c.mu.Unlock()
	return nil
}

// Close tears the core down. No further events are delivered.
func (c *Core) Close() {
	c.subMu.Lock()
	c.subscribers = make(map[uint64]Handler)
	c.subMu.Unlock()
}
