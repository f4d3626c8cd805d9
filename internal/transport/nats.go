package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/config"
	"github.com/avvvet/defidvisor-core/internal/fault"
	"github.com/avvvet/defidvisor-core/internal/models"
	"github.com/avvvet/defidvisor-core/internal/orchestrator"
)

// CoreResolver hands out the orchestration core for a session, creating one
// on first use.
type CoreResolver interface {
	Core(session orchestrator.Session) (*orchestrator.Core, error)
}

// NATSTransport serves the orchestration core over NATS request/reply. Every
// request gets a reply: failures become structured error payloads rather
// than dropped messages.
type NATSTransport struct {
	conn   *nats.Conn
	config *config.Config
	cores  CoreResolver
	logger *zap.Logger
	subs   []*nats.Subscription
}

func NewNATSTransport(cfg *config.Config, cores CoreResolver, logger *zap.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", cfg.NatsURL))

	return &NATSTransport{
		conn:   conn,
		config: cfg,
		cores:  cores,
		logger: logger,
	}, nil
}

func (nt *NATSTransport) Start() error {
	prefix := nt.config.SubjectPrefix
	handlers := map[string]nats.MsgHandler{
		prefix + ".chat":      nt.handleChat,
		prefix + ".portfolio": nt.handlePortfolio,
		prefix + ".markets":   nt.handleMarkets,
		prefix + ".swap":      nt.handleSwap,
		prefix + ".order":     nt.handleOrder,
		prefix + ".vault.>":   nt.handleVault,
	}
	for subject, handler := range handlers {
		sub, err := nt.conn.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("subscribed", zap.String("subject", subject))
	}
	return nil
}

func (nt *NATSTransport) handleChat(msg *nats.Msg) {
	var req models.ChatRequest
	if !nt.decode(msg, &req) {
		return
	}
	if req.SessionID == "" {
		// First contact without a session: mint one. The reply carries it
		// back so the client can keep the conversation going.
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID, UserID: req.UserID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	entries, err := core.SubmitChatMessage(ctx, req.Message)
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, entries)
}

func (nt *NATSTransport) handlePortfolio(msg *nats.Msg) {
	var req models.PortfolioRequest
	if !nt.decode(msg, &req) {
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	snapshot, err := core.RefreshPortfolio(ctx)
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, snapshot)
}

func (nt *NATSTransport) handleMarkets(msg *nats.Msg) {
	var req models.MarketsRequest
	if !nt.decode(msg, &req) {
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	coins, err := core.TopMarkets(ctx, req.Limit)
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, coins)
}

func (nt *NATSTransport) handleSwap(msg *nats.Msg) {
	var req models.SwapRequest
	if !nt.decode(msg, &req) {
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	resp, err := core.SubmitSwap(ctx, orchestrator.SwapRequest{
		FromNetwork:  req.FromNetwork,
		ToNetwork:    req.ToNetwork,
		TokenAddress: req.TokenAddress,
		Quantity:     req.Quantity,
	})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, resp)
}

func (nt *NATSTransport) handleOrder(msg *nats.Msg) {
	var req models.OrderRequest
	if !nt.decode(msg, &req) {
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	resp, err := core.CheckOrderStatus(ctx, req.OrderID)
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, resp)
}

// handleVault dispatches on the subject suffix: buckets, create_bucket,
// files, upload, download.
func (nt *NATSTransport) handleVault(msg *nats.Msg) {
	var req models.VaultRequest
	if !nt.decode(msg, &req) {
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	core, err := nt.cores.Core(orchestrator.Session{ID: req.SessionID})
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}

	op := msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
	var payload any
	switch op {
	case "buckets":
		payload, err = core.ListBuckets(ctx)
	case "create_bucket":
		payload, err = core.CreateBucket(ctx, req.Name)
	case "files":
		payload, err = core.ListFiles(ctx, req.Bucket)
	case "upload":
		payload, err = core.UploadFile(ctx, req.Bucket, req.Name, strings.NewReader(string(req.Content)))
	case "download":
		payload, err = core.DownloadFile(ctx, req.Bucket, req.Name)
	default:
		nt.respondError(msg, req.SessionID, unknownVaultOp(op))
		return
	}
	if err != nil {
		nt.respondError(msg, req.SessionID, err)
		return
	}
	nt.respondData(msg, req.SessionID, payload)
}

// unknownVaultOp classifies a bad subject suffix as caller input, not an
// upstream failure.
func unknownVaultOp(op string) error {
	return fault.New(fault.NotFound, "vault."+op, fmt.Sprintf("unknown vault operation %q", op))
}

func (nt *NATSTransport) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), nt.config.NatsTimeout)
}

func (nt *NATSTransport) decode(msg *nats.Msg, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		nt.logger.Warn("failed to parse request",
			zap.String("subject", msg.Subject), zap.Error(err))
		code := models.ErrorParse
		message := "invalid request format"
		nt.respond(msg, &models.Response{
			Status:       models.StatusError,
			ErrorCode:    &code,
			ErrorMessage: &message,
		})
		return false
	}
	return true
}

func (nt *NATSTransport) respondData(msg *nats.Msg, sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nt.respondError(msg, sessionID, err)
		return
	}
	nt.respond(msg, models.OKResponse(sessionID, data))
}

func (nt *NATSTransport) respondError(msg *nats.Msg, sessionID string, err error) {
	nt.logger.Warn("request failed",
		zap.String("subject", msg.Subject), zap.Error(err))
	nt.respond(msg, models.ErrorResponse(sessionID, err))
}

func (nt *NATSTransport) respond(msg *nats.Msg, response *models.Response) {
	data, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		nt.logger.Warn("failed to send response", zap.Error(err))
	}
}

// Conn exposes the underlying connection for auxiliary consumers, such as
// the transcript source.
func (nt *NATSTransport) Conn() *nats.Conn {
	return nt.conn
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		if err := sub.Unsubscribe(); err != nil {
			nt.logger.Warn("failed to unsubscribe", zap.Error(err))
		}
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
