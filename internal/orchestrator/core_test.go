package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/avvvet/defidvisor-core/internal/advisor"
	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/market"
	"github.com/avvvet/defidvisor-core/internal/memory"
	"github.com/avvvet/defidvisor-core/internal/vault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

type stubProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	history []advisor.Turn
}

func (p *stubProvider) Reply(_ context.Context, _ string, history []advisor.Turn) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.history = history
	return p.reply, p.err
}

type stubMarket struct {
	mu        sync.Mutex
	news      []market.Article
	prices    []market.PricePoint
	coins     []market.Coin
	newsErr   error
	pricesErr error
	coinsErr  error
	keywords  []string
}

func (m *stubMarket) News(_ context.Context, keyword string, _ int) ([]market.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywords = append(m.keywords, keyword)
	return m.news, m.newsErr
}

func (m *stubMarket) PriceHistory(_ context.Context, _ string) ([]market.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices, m.pricesErr
}

func (m *stubMarket) TopMarkets(_ context.Context, _ int) ([]market.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coins, m.coinsErr
}

type stubSDK struct {
	mu            sync.Mutex
	portfolio     *wallet.Portfolio
	portfolioErr  error
	walletSet     *wallet.WalletSet
	createErr     error
	transferResp  *wallet.TransferResponse
	transferErr   error
	orderResp     *wallet.OrderResponse
	orderErr      error
	createCalls   int
	transferCalls int
	lastTransfer  wallet.TransferRequest
}

func (s *stubSDK) GetPortfolio(context.Context) (*wallet.Portfolio, error) {
	return s.portfolio, s.portfolioErr
}

func (s *stubSDK) CreateWallet(context.Context) (*wallet.WalletSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	return s.walletSet, s.createErr
}

func (s *stubSDK) TransferTokens(_ context.Context, req wallet.TransferRequest) (*wallet.TransferResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferCalls++
	s.lastTransfer = req
	return s.transferResp, s.transferErr
}

func (s *stubSDK) OrderHistory(context.Context, string) (*wallet.OrderResponse, error) {
	return s.orderResp, s.orderErr
}

// stubResolver dispatches per-network, failing networks named in errs.
type stubResolver struct {
	txs  map[string][]explorer.Transaction
	errs map[string]error
}

func (r *stubResolver) Transactions(_ context.Context, network, _ string) ([]explorer.Transaction, error) {
	if err, ok := r.errs[network]; ok {
		return nil, err
	}
	return r.txs[network], nil
}

type stubVault struct {
	mu          sync.Mutex
	buckets     []vault.Bucket
	files       map[string][]vault.File
	createErr   error
	uploadErr   error
	listCalls   int
	filesCalls  int
	uploadCalls int
}

func (v *stubVault) ListBuckets(context.Context) ([]vault.Bucket, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listCalls++
	return v.buckets, nil
}

func (v *stubVault) CreateBucket(_ context.Context, name string) (*vault.Bucket, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.createErr != nil {
		return nil, v.createErr
	}
	// The upstream dedupes by name; creating an existing bucket returns it.
	for _, b := range v.buckets {
		if b.Name == name {
			return &b, nil
		}
	}
	bucket := vault.Bucket{ID: uint(len(v.buckets) + 1), Name: name}
	v.buckets = append(v.buckets, bucket)
	return &bucket, nil
}

func (v *stubVault) ListFiles(_ context.Context, bucket string) ([]vault.File, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filesCalls++
	return v.files[bucket], nil
}

func (v *stubVault) UploadFile(_ context.Context, bucket, filename string, _ io.Reader) (*vault.File, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uploadCalls++
	if v.uploadErr != nil {
		return nil, v.uploadErr
	}
	file := vault.File{ID: uint(len(v.files[bucket]) + 1), Name: filename}
	if v.files == nil {
		v.files = make(map[string][]vault.File)
	}
	v.files[bucket] = append(v.files[bucket], file)
	return &file, nil
}

func (v *stubVault) DownloadFile(context.Context, string, string) ([]byte, error) {
	return []byte("content"), nil
}

type stubLog struct {
	mu        sync.Mutex
	appended  []memory.Entry
	appendErr error
}

func (l *stubLog) Append(_ context.Context, _, _ string, entry memory.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.appended = append(l.appended, entry)
	return nil
}

func (l *stubLog) History(context.Context, string) ([]advisor.Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	turns := make([]advisor.Turn, 0, len(l.appended))
	for _, entry := range l.appended {
		switch entry.Sender {
		case memory.SenderLocal:
			turns = append(turns, advisor.Turn{Role: advisor.RoleUser, Text: entry.Text})
		case memory.SenderRemote:
			turns = append(turns, advisor.Turn{Role: advisor.RoleAssistant, Text: entry.Text})
		}
	}
	return turns, nil
}

func (l *stubLog) Entries(context.Context, string) ([]memory.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appended, nil
}

var errBoom = errors.New("boom")

type coreFixture struct {
	core     *Core
	provider *stubProvider
	market   *stubMarket
	sdk      *stubSDK
	resolver *stubResolver
	vault    *stubVault
	log      *stubLog
}

func newFixture() *coreFixture {
	f := &coreFixture{
		provider: &stubProvider{},
		market:   &stubMarket{},
		sdk: &stubSDK{
			portfolio: &wallet.Portfolio{},
			walletSet: &wallet.WalletSet{},
		},
		resolver: &stubResolver{},
		vault:    &stubVault{files: make(map[string][]vault.File)},
		log:      &stubLog{},
	}
	f.core = New(Session{ID: "sess-1", UserID: "user-1"}, Deps{
		Provider: f.provider,
		Market:   f.market,
		Wallet:   f.sdk,
		Resolver: f.resolver,
		Vault:    f.vault,
		Log:      f.log,
	})
	return f
}
