package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/playgrid/warden/pkg/events"
	"github.com/playgrid/warden/pkg/log"
	"github.com/playgrid/warden/pkg/metrics"
	"github.com/playgrid/warden/pkg/ports"
	"github.com/playgrid/warden/pkg/types"
)

// ServerProcess supervises one game-server OS process. It implements
// launch.Process: the scheduler admits it, Start brings it up, and the
// phase it reports tells the scheduler when its admission slot can be
// reclaimed.
type ServerProcess struct {
	spec       *types.ServerSpec
	instanceID string

	ports  *ports.Registry
	broker *events.Broker
	logger zerolog.Logger

	mu    sync.Mutex
	phase types.ProcessPhase
	port  int
	cmd   *exec.Cmd
}

// NewServerProcess creates a process supervisor for one launch. The
// process starts in the queued phase; nothing happens until the
// scheduler admits it and calls Start.
func NewServerProcess(spec *types.ServerSpec, registry *ports.Registry, broker *events.Broker) *ServerProcess {
	return &ServerProcess{
		spec:       spec,
		instanceID: uuid.New().String(),
		ports:      registry,
		broker:     broker,
		logger:     log.WithComponent("supervisor"),
		phase:      types.PhaseQueued,
	}
}

// Spec returns the server's specification.
func (p *ServerProcess) Spec() *types.ServerSpec {
	return p.spec
}

// InstanceID returns the unique identity of this launch attempt.
func (p *ServerProcess) InstanceID() string {
	return p.instanceID
}

// Phase returns the current lifecycle phase.
func (p *ServerProcess) Phase() types.ProcessPhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Port returns the port allocated to this process, or 0 before
// allocation.
func (p *ServerProcess) Port() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port
}

// Start allocates a port and spawns the server process. It is called
// exactly once, on the launch's own goroutine, after admission. Any
// failure marks the process closed so the scheduler's next sweep frees
// the slot; failures never propagate.
func (p *ServerProcess) Start() {
	p.setPhase(types.PhaseStarting)

	port, err := p.ports.Allocate(p.spec.Port)
	if err != nil {
		p.fail(fmt.Errorf("allocate port: %w", err))
		return
	}
	p.mu.Lock()
	p.port = port
	p.mu.Unlock()

	if len(p.spec.Command) == 0 {
		p.ports.Release(port)
		p.fail(fmt.Errorf("server %s has no command configured", p.spec.ServiceID))
		return
	}

	cmd := exec.Command(p.spec.Command[0], p.spec.Command[1:]...)
	cmd.Dir = p.spec.Dir
	cmd.Env = append(os.Environ(), p.environ(port)...)

	if err := cmd.Start(); err != nil {
		p.ports.Release(port)
		p.fail(fmt.Errorf("spawn %s: %w", p.spec.Command[0], err))
		return
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	p.logger.Info().
		Str("service_id", p.spec.ServiceID).
		Int("port", port).
		Int("pid", cmd.Process.Pid).
		Msg("server process started")
	p.setPhase(types.PhaseVisible)

	go p.wait(cmd, port)
}

// SetVisible toggles the server between the visible and invisible
// phases. Only meaningful once the process is up.
func (p *ServerProcess) SetVisible(visible bool) {
	p.mu.Lock()
	running := p.phase == types.PhaseVisible || p.phase == types.PhaseInvisible
	p.mu.Unlock()
	if !running {
		return
	}
	if visible {
		p.setPhase(types.PhaseVisible)
	} else {
		p.setPhase(types.PhaseInvisible)
	}
}

// Terminate kills the underlying process, if running. Best-effort; the
// exit is observed by the wait goroutine like any other exit.
func (p *ServerProcess) Terminate() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		p.logger.Warn().Err(err).Str("service_id", p.spec.ServiceID).Msg("failed to kill server process")
	}
}

// wait blocks until the process exits, then releases its port and
// settles the phase.
func (p *ServerProcess) wait(cmd *exec.Cmd, port int) {
	err := cmd.Wait()
	if err != nil {
		p.logger.Warn().Err(err).Str("service_id", p.spec.ServiceID).Msg("server process exited with error")
	} else {
		p.logger.Info().Str("service_id", p.spec.ServiceID).Msg("server process exited")
	}
	p.ports.Release(port)
	p.setPhase(types.PhaseClosed)
}

func (p *ServerProcess) fail(err error) {
	p.logger.Error().Err(err).Str("service_id", p.spec.ServiceID).Msg("launch failed")
	metrics.LaunchFailuresTotal.Inc()
	if p.broker != nil {
		p.broker.Publish(events.New(events.EventLaunchFailed, err.Error(), map[string]string{
			"service_id": p.spec.ServiceID,
			"instance":   p.instanceID,
		}))
	}
	p.setPhase(types.PhaseClosed)
}

func (p *ServerProcess) setPhase(phase types.ProcessPhase) {
	p.mu.Lock()
	if p.phase == phase {
		p.mu.Unlock()
		return
	}
	p.phase = phase
	p.mu.Unlock()

	if p.broker != nil {
		p.broker.Publish(events.New(events.EventProcessPhase, string(phase), map[string]string{
			"service_id": p.spec.ServiceID,
			"instance":   p.instanceID,
			"phase":      string(phase),
		}))
	}
}

// environ builds the extra environment handed to the server process.
func (p *ServerProcess) environ(port int) []string {
	env := []string{
		"WARDEN_SERVICE_ID=" + p.spec.ServiceID,
		"WARDEN_INSTANCE_ID=" + p.instanceID,
		"SERVER_PORT=" + strconv.Itoa(port),
	}
	for k, v := range p.spec.Env {
		env = append(env, k+"="+v)
	}
	return env
}
