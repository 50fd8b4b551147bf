package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgrid/warden/pkg/ports"
	"github.com/playgrid/warden/pkg/types"
)

func freeProbe(int, time.Duration) bool { return false }

func testPortRegistry() *ports.Registry {
	return ports.NewRegistry(ports.Config{
		Probe:     freeProbe,
		Reclaimer: failingReclaimer{},
	})
}

type failingReclaimer struct{}

func (failingReclaimer) KillOwner(int) error { return assert.AnError }

func TestStartWithoutCommandFails(t *testing.T) {
	reg := testPortRegistry()
	p := NewServerProcess(&types.ServerSpec{
		ServiceID: "no-command",
		Port:      42000,
	}, reg, nil)

	require.Equal(t, types.PhaseQueued, p.Phase())
	p.Start()

	assert.Equal(t, types.PhaseClosed, p.Phase())
	// The allocated port must be handed back on failure.
	assert.Equal(t, types.PortAvailable, reg.Classify(42000))
}

func TestStartSpawnFailureSettlesClosed(t *testing.T) {
	reg := testPortRegistry()
	p := NewServerProcess(&types.ServerSpec{
		ServiceID: "bad-binary",
		Port:      42100,
		Command:   []string{"/nonexistent/game-server"},
	}, reg, nil)

	p.Start()

	assert.Equal(t, types.PhaseClosed, p.Phase())
	assert.Equal(t, types.PortAvailable, reg.Classify(42100))
}

func TestStartRunsAndSettlesOnExit(t *testing.T) {
	reg := testPortRegistry()
	p := NewServerProcess(&types.ServerSpec{
		ServiceID: "short-lived",
		Port:      42200,
		Command:   []string{"sh", "-c", "exit 0"},
	}, reg, nil)

	p.Start()
	require.Equal(t, 42200, p.Port())

	// The process exits immediately; the wait goroutine settles the
	// phase and releases the port.
	require.Eventually(t, func() bool {
		return p.Phase() == types.PhaseClosed
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, types.PortAvailable, reg.Classify(42200))
}

func TestTerminateKillsProcess(t *testing.T) {
	reg := testPortRegistry()
	p := NewServerProcess(&types.ServerSpec{
		ServiceID: "long-lived",
		Port:      42300,
		Command:   []string{"sleep", "60"},
	}, reg, nil)

	p.Start()
	require.Equal(t, types.PhaseVisible, p.Phase())

	p.Terminate()
	require.Eventually(t, func() bool {
		return p.Phase() == types.PhaseClosed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSetVisible(t *testing.T) {
	reg := testPortRegistry()
	p := NewServerProcess(&types.ServerSpec{
		ServiceID: "toggler",
		Port:      42400,
		Command:   []string{"sleep", "60"},
	}, reg, nil)

	// Before the process runs, visibility toggles are ignored.
	p.SetVisible(false)
	assert.Equal(t, types.PhaseQueued, p.Phase())

	p.Start()
	defer p.Terminate()
	require.Equal(t, types.PhaseVisible, p.Phase())

	p.SetVisible(false)
	assert.Equal(t, types.PhaseInvisible, p.Phase())
	p.SetVisible(true)
	assert.Equal(t, types.PhaseVisible, p.Phase())
}
