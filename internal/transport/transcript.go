package transport

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/defidvisor-core/internal/models"
	"github.com/avvvet/defidvisor-core/internal/orchestrator"
)

// TranscriptSource adapts a NATS subject carrying speech-transcript segments
// into a transcript feed. Each segment is routed into its session's chat
// path, so a spoken "what about eth" behaves exactly like a typed one.
type TranscriptSource struct {
	conn    *nats.Conn
	subject string
	cores   CoreResolver
	logger  *zap.Logger
}

func NewTranscriptSource(conn *nats.Conn, subject string, cores CoreResolver, logger *zap.Logger) *TranscriptSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptSource{conn: conn, subject: subject, cores: cores, logger: logger}
}

// Listen consumes the transcript subject until ctx is cancelled or the
// subscription breaks. deliver is called with every non-empty segment after
// it has been routed to its session.
func (s *TranscriptSource) Listen(ctx context.Context, deliver func(segment string)) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("failed to unsubscribe transcript subject", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nats.ErrConnectionClosed
			}
			s.handle(ctx, msg, deliver)
		}
	}
}

func (s *TranscriptSource) handle(ctx context.Context, msg *nats.Msg, deliver func(string)) {
	var segment models.TranscriptSegment
	if err := json.Unmarshal(msg.Data, &segment); err != nil {
		s.logger.Warn("transcript segment is not valid JSON", zap.Error(err))
		return
	}
	text := strings.TrimSpace(segment.Text)
	if text == "" {
		return
	}

	core, err := s.cores.Core(orchestrator.Session{ID: segment.SessionID, UserID: segment.UserID})
	if err != nil {
		s.logger.Warn("no core for transcript session",
			zap.String("session_id", segment.SessionID), zap.Error(err))
		return
	}

	if _, err := core.SubmitChatMessage(ctx, text); err != nil {
		// A segment arriving while a chat is in flight is dropped; the
		// next one will land.
		s.logger.Debug("transcript segment not submitted",
			zap.String("session_id", segment.SessionID), zap.Error(err))
		return
	}
	deliver(text)
}
