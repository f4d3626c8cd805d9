package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/memory"

	"github.com/avvvet/defidvisor-core/internal/advisor"
)

// Manager orchestrates conversation memory using Redis + LangChainGo.
// The store is durable truth; the LangChainGo buffer mirrors the exchange so
// the advisor provider gets prompt context without re-reading Redis.
//
// One Manager serves every session, and sessions arrive on independent
// goroutines, so the buffer cache is guarded by a mutex. Within one session
// the chat flow is already serialized by the core's single-flight rule.
type Manager struct {
	store Store

	mu       sync.Mutex
	sessions map[string]*memory.ConversationBuffer
}

// NewManager creates a new memory manager
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sessions: make(map[string]*memory.ConversationBuffer),
	}
}

// getOrCreateBuffer returns the LangChainGo buffer for a session, loading
// persisted history into it on first use.
func (m *Manager) getOrCreateBuffer(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, exists := m.sessions[sessionID]; exists {
		return buf, nil
	}

	buf := memory.NewConversationBuffer()

	session, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	for _, entry := range session.Entries {
		if err := addToBuffer(ctx, buf, entry); err != nil {
			return nil, err
		}
	}

	m.sessions[sessionID] = buf
	return buf, nil
}

func addToBuffer(ctx context.Context, buf *memory.ConversationBuffer, entry Entry) error {
	var msg schema.ChatMessage

	switch entry.Sender {
	case SenderLocal:
		msg = schema.HumanChatMessage{Content: entry.Text}
	case SenderRemote:
		msg = schema.AIChatMessage{Content: entry.Text}
	default:
		// System entries are error notices for the user, not advisor context.
		return nil
	}

	if err := buf.ChatHistory.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to add message to buffer: %w", err)
	}
	return nil
}

// Append persists a conversation entry and mirrors it into the session buffer.
func (m *Manager) Append(ctx context.Context, sessionID, userID string, entry Entry) error {
	buf, err := m.getOrCreateBuffer(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := addToBuffer(ctx, buf, entry); err != nil {
		return err
	}

	if err := m.store.AppendEntry(ctx, sessionID, userID, entry); err != nil {
		return fmt.Errorf("failed to persist entry: %w", err)
	}
	return nil
}

// History returns the session's prior exchange as advisor prompt turns.
func (m *Manager) History(ctx context.Context, sessionID string) ([]advisor.Turn, error) {
	buf, err := m.getOrCreateBuffer(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	turns := make([]advisor.Turn, 0, len(messages))
	for _, msg := range messages {
		switch typed := msg.(type) {
		case schema.HumanChatMessage:
			turns = append(turns, advisor.Turn{Role: advisor.RoleUser, Text: typed.Content})
		case schema.AIChatMessage:
			turns = append(turns, advisor.Turn{Role: advisor.RoleAssistant, Text: typed.Content})
		}
	}
	return turns, nil
}

// Entries returns the persisted conversation entries for a session.
func (m *Manager) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	return m.store.Entries(ctx, sessionID)
}

// ClearSession clears a session from both cache and the store.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ActiveSessionCount returns the number of cached session buffers.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
