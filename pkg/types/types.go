package types

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can spell intervals as
// "200ms" or "1s".
type Duration time.Duration

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML renders the duration in time.Duration notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses time.Duration notation.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ServerSpec describes one configured game server: its identity within the
// fleet, the priority used to order pending launches, and everything the
// supervisor needs to spawn the process.
type ServerSpec struct {
	ServiceID string `yaml:"service_id"` // stable identity, unique per node
	Name      string `yaml:"name"`
	Group     string `yaml:"group"`

	// StartPriority orders pending launches; higher is served first.
	StartPriority int `yaml:"start_priority"`

	// Static servers keep their working directory between runs,
	// dynamic ones are provisioned fresh for every launch.
	Static bool `yaml:"static"`

	// Port is the preferred port for this server. The allocator treats
	// it as a starting point, not a guarantee.
	Port int `yaml:"port"`

	Command []string          `yaml:"command"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
}

// ProcessPhase is the externally visible lifecycle phase of a managed
// server process. Phase transitions are owned by the supervisor; the
// scheduler only reads them.
type ProcessPhase string

const (
	// PhaseQueued means the launch has been requested but not admitted.
	PhaseQueued ProcessPhase = "queued"
	// PhaseStarting means the launch was admitted and the process is
	// being brought up.
	PhaseStarting ProcessPhase = "starting"
	// PhaseVisible means the server is up and registered for players.
	PhaseVisible ProcessPhase = "visible"
	// PhaseInvisible means the server is up but hidden from players.
	PhaseInvisible ProcessPhase = "invisible"
	// PhaseClosed means the process has exited or failed to start.
	PhaseClosed ProcessPhase = "closed"
)

// Settled reports whether the phase means the process is no longer
// mid-start, i.e. its admission slot can be reclaimed.
func (p ProcessPhase) Settled() bool {
	switch p {
	case PhaseVisible, PhaseInvisible, PhaseClosed:
		return true
	}
	return false
}

// PortState classifies a port from the agent's point of view.
type PortState string

const (
	PortAvailable       PortState = "available"
	PortUsedByUs        PortState = "used_by_us"
	PortBlockedByOther  PortState = "blocked_by_other"
	PortOccupiedByOther PortState = "occupied_by_other"
	PortForceClosed     PortState = "force_closed"
)

// AgentConfig holds the node agent's runtime configuration. It is loaded
// from a YAML file by pkg/config and handed to the components as a plain
// struct; nothing in here is persisted by the agent itself.
type AgentConfig struct {
	// MaxConcurrentStarts caps how many launches may be mid-start at
	// the same time.
	MaxConcurrentStarts int `yaml:"max_concurrent_starts"`

	// TickInterval is the scheduler's admission loop interval.
	TickInterval Duration `yaml:"tick_interval"`

	// ProbeTimeout bounds a single port occupancy probe.
	ProbeTimeout Duration `yaml:"probe_timeout"`

	// BlockedPortCap bounds the blocked-port negative cache; on
	// overflow the whole cache is dropped.
	BlockedPortCap int `yaml:"blocked_port_cap"`

	// ListenAddr serves /metrics and /health.
	ListenAddr string `yaml:"listen_addr"`

	// DataDir holds the agent's launch journal.
	DataDir string `yaml:"data_dir"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Servers are enqueued for launch when the agent boots. Further
	// launches arrive at runtime from the fleet controller.
	Servers []ServerSpec `yaml:"servers"`
}
