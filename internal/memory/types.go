package memory

import (
	"context"
	"time"
)

// Entry senders. Local entries are the user's own messages, remote entries
// are advisor replies, system entries are error notices surfaced in-line.
const (
	SenderLocal  = "local"
	SenderRemote = "remote"
	SenderSystem = "system"
)

// Entry is a single conversation entry. Entries are append-only and never
// mutated once created.
type Entry struct {
	Text   string    `json:"text"`
	Sender string    `json:"sender"`
	At     time.Time `json:"at"`
}

// SessionData represents all data for a conversation session
type SessionData struct {
	SessionID string   `json:"session_id"`
	UserID    string   `json:"user_id"`
	Entries   []Entry  `json:"entries"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	EntryCount   int       `json:"entry_count"`
}

// Store defines the interface for conversation storage
// This allows us to swap between Redis, PostgreSQL, in-memory, etc.
type Store interface {
	// LoadSession loads a session from storage
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// AppendEntry appends a conversation entry to a session
	AppendEntry(ctx context.Context, sessionID, userID string, entry Entry) error

	// Entries retrieves all entries for a session
	Entries(ctx context.Context, sessionID string) ([]Entry, error)

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error
}
