package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgrid/warden/pkg/types"
)

func newRegisteredProcess(serviceID string) *ServerProcess {
	return NewServerProcess(&types.ServerSpec{ServiceID: serviceID}, testPortRegistry(), nil)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewInstanceRegistry()
	p := newRegisteredProcess("lobby-1")

	_, ok := r.Lookup("lobby-1")
	assert.False(t, ok)

	r.Register(p)
	got, ok := r.Lookup("lobby-1")
	require.True(t, ok)
	assert.Same(t, p, got.(*ServerProcess))
	assert.Equal(t, 1, r.Count())

	r.Unregister(p)
	_, ok = r.Lookup("lobby-1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	// Unregister is idempotent.
	r.Unregister(p)
	assert.Equal(t, 0, r.Count())
}

func TestRegistryReplaceKeepsNewest(t *testing.T) {
	r := NewInstanceRegistry()
	old := newRegisteredProcess("lobby-1")
	fresh := newRegisteredProcess("lobby-1")

	r.Register(old)
	r.Register(fresh)

	// Unregistering the stale process must not evict the replacement.
	r.Unregister(old)
	got, ok := r.Lookup("lobby-1")
	require.True(t, ok)
	assert.Same(t, fresh, got.(*ServerProcess))
}

func TestRegistryList(t *testing.T) {
	r := NewInstanceRegistry()
	r.Register(newRegisteredProcess("a"))
	r.Register(newRegisteredProcess("b"))

	assert.Len(t, r.List(), 2)
}
