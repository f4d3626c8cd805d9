package orchestrator

import (
	"context"
	"sync"
)

// Builder constructs a core for a session. The registry calls it at most
// once per session ID.
type Builder func(session Session) (*Core, error)

// Registry hands out one core per session, building and restoring it on
// first use.
type Registry struct {
	build Builder

	mu    sync.Mutex
	cores map[string]*Core
}

func NewRegistry(build Builder) *Registry {
	return &Registry{
		build: build,
		cores: make(map[string]*Core),
	}
}

// Core returns the session's core, creating it if this is the session's
// first request. A freshly built core is restored from the conversation
// store before it is handed out.
func (r *Registry) Core(session Session) (*Core, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if core, ok := r.cores[session.ID]; ok {
		return core, nil
	}

	core, err := r.build(session)
	if err != nil {
		return nil, err
	}
	if err := core.Restore(context.Background()); err != nil {
		core.Close()
		return nil, err
	}

	r.cores[session.ID] = core
	return core, nil
}

// Close tears down every core the registry handed out.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, core := range r.cores {
		core.Close()
		delete(r.cores, id)
	}
}
