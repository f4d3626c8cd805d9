package advisor

import (
	"context"
)

// Turn is one prior exchange handed to the provider as prompt context.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Provider defines the interface for the AI advisor backend.
type Provider interface {
	// Reply generates the advisor's raw reply for a user message. The reply is
	// expected to be the strict JSON envelope described by ParseReply, but the
	// provider itself makes no guarantee; callers must treat the content as
	// untrusted.
	Reply(ctx context.Context, message string, history []Turn) (string, error)
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
