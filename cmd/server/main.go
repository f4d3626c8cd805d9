package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/advisor"
	"github.com/avvvet/defidvisor-core/internal/config"
	"github.com/avvvet/defidvisor-core/internal/explorer"
	"github.com/avvvet/defidvisor-core/internal/market"
	"github.com/avvvet/defidvisor-core/internal/memory"
	"github.com/avvvet/defidvisor-core/internal/metrics"
	"github.com/avvvet/defidvisor-core/internal/orchestrator"
	"github.com/avvvet/defidvisor-core/internal/transcript"
	"github.com/avvvet/defidvisor-core/internal/transport"
	"github.com/avvvet/defidvisor-core/internal/vault"
	"github.com/avvvet/defidvisor-core/internal/wallet"
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	// .env is a development convenience; production reads real env vars.
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logger.Info("starting defidvisor core",
		zap.String("service", cfg.ServiceName),
		zap.String("nats_url", cfg.NatsURL))

	if cfg.OpenAIAPIKey == "" {
		logger.Fatal("OPENAI_API_KEY environment variable is required")
	}
	if cfg.WalletAPIKey == "" {
		logger.Fatal("WALLET_API_KEY environment variable is required")
	}

	// Conversation persistence
	store, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer store.Close()
	logger.Info("connected to Redis")

	conversations := memory.NewManager(store)
	defer conversations.Close()

	// Collaborator clients
	provider, err := advisor.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AdvisorTimeout)
	if err != nil {
		logger.Fatal("failed to initialize advisor provider", zap.Error(err))
	}

	marketClient := market.NewClient(cfg.NewsBaseURL, cfg.NewsAPIKey, cfg.MarketBaseURL, cfg.HTTPTimeout)
	walletClient := wallet.NewClient(cfg.WalletBaseURL, cfg.WalletAPIKey, cfg.HTTPTimeout)
	vaultClient := vault.NewClient(cfg.VaultBaseURL, cfg.HTTPTimeout)

	resolver := explorer.NewResolver()
	resolver.Register("POLYGON_TESTNET_AMOY", explorer.NewPolygonScan(cfg.PolygonAmoyBaseURL, cfg.HTTPTimeout))
	resolver.Register("APTOS_TESTNET", explorer.NewAptosFullnode(cfg.AptosBaseURL, cfg.HTTPTimeout))

	mtr := metrics.New(cfg.ServiceName)

	// One orchestration core per session
	registry := orchestrator.NewRegistry(func(session orchestrator.Session) (*orchestrator.Core, error) {
		return orchestrator.New(session, orchestrator.Deps{
			Provider: provider,
			Market:   marketClient,
			Wallet:   walletClient,
			Resolver: resolver,
			Vault:    vaultClient,
			Log:      conversations,
			Logger:   logger.With(zap.String("session_id", session.ID)),
			Metrics:  mtr,
		}), nil
	})
	defer registry.Close()

	// NATS transport
	natsTransport, err := transport.NewNATSTransport(cfg, registry, logger)
	if err != nil {
		logger.Fatal("failed to initialize NATS transport", zap.Error(err))
	}
	defer natsTransport.Close()

	if err := natsTransport.Start(); err != nil {
		logger.Fatal("failed to start NATS transport", zap.Error(err))
	}

	// Supervised transcript feed
	source := transport.NewTranscriptSource(natsTransport.Conn(), cfg.TranscriptSubject, registry, logger)
	// The source routes segments into their session's chat path itself; the
	// supervisor only needs the delivery signal to reset its failure count.
	supervisor := transcript.NewSupervisor(source, func(string) {}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := supervisor.Run(ctx); err != nil {
			logger.Error("transcript supervisor gave up", zap.Error(err))
		}
	}()

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", mtr.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("defidvisor core is running",
		zap.String("subject_prefix", cfg.SubjectPrefix),
		zap.String("transcript_subject", cfg.TranscriptSubject))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	supervisor.Stop()
	cancel()
	_ = metricsServer.Shutdown(context.Background())
	logger.Info("defidvisor core stopped",
		zap.Int("active_sessions", conversations.ActiveSessionCount()))
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
