package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/defidvisor-core/internal/memory"
)

func TestRegistryBuildsOncePerSession(t *testing.T) {
	builds := 0
	registry := NewRegistry(func(session Session) (*Core, error) {
		builds++
		f := newFixture()
		return New(session, Deps{
			Provider: f.provider,
			Market:   f.market,
			Wallet:   f.sdk,
			Resolver: f.resolver,
			Vault:    f.vault,
			Log:      f.log,
		}), nil
	})
	defer registry.Close()

	a, err := registry.Core(Session{ID: "s1"})
	require.NoError(t, err)
	b, err := registry.Core(Session{ID: "s1"})
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)

	c, err := registry.Core(Session{ID: "s2"})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, builds)
}

func TestRegistryBuildFailureNotCached(t *testing.T) {
	fail := true
	registry := NewRegistry(func(session Session) (*Core, error) {
		if fail {
			return nil, errBoom
		}
		return New(session, Deps{}), nil
	})
	defer registry.Close()

	_, err := registry.Core(Session{ID: "s1"})
	require.Error(t, err)

	fail = false
	core, err := registry.Core(Session{ID: "s1"})
	require.NoError(t, err)
	assert.NotNil(t, core)
}

func TestRegistryRestoresPersistedConversation(t *testing.T) {
	log := &stubLog{}
	log.appended = []memory.Entry{{Text: "welcome back", Sender: memory.SenderRemote}}

	registry := NewRegistry(func(session Session) (*Core, error) {
		return New(session, Deps{Log: log}), nil
	})
	defer registry.Close()

	core, err := registry.Core(Session{ID: "s1"})
	require.NoError(t, err)

	conversation := core.Conversation()
	require.Len(t, conversation, 1)
	assert.Equal(t, "welcome back", conversation[0].Text)
}
