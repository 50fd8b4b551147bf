package ports

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/playgrid/warden/pkg/events"
	"github.com/playgrid/warden/pkg/log"
	"github.com/playgrid/warden/pkg/metrics"
	"github.com/playgrid/warden/pkg/types"
)

const (
	// MinPort and MaxPort bound the allocatable range. Everything below
	// 1024 is privileged and never handed out.
	MinPort = 1024
	MaxPort = 65535

	// maxAllocateAttempts bounds one Allocate call; the first
	// neighborhoodAttempts candidates are sampled near the preferred
	// port, the rest from the full range.
	maxAllocateAttempts  = 100
	neighborhoodAttempts = 20
	neighborhoodBelow    = 100
	neighborhoodAbove    = 500

	// DefaultBlockedCap bounds the blocked-port negative cache.
	DefaultBlockedCap = 500

	defaultProbeTimeout = 1 * time.Second
)

// ErrNoFreePort is returned when Allocate exhausts its attempt budget
// without finding a free port. Callers must treat it as fatal for the
// launch at hand and not retry in a loop.
var ErrNoFreePort = errors.New("no free port found within attempt budget")

// ProbeFunc reports whether a port is held by some process on this host.
// The default implementation dials and then test-binds the port; tests
// inject a deterministic one.
type ProbeFunc func(port int, timeout time.Duration) bool

// Registry tracks this agent's view of the node's port space: ports it
// has reserved for its own servers, ports observed to be held by foreign
// processes, and ports it has forcibly reclaimed.
type Registry struct {
	mu          sync.Mutex
	reserved    map[int]struct{}
	blocked     map[int]struct{}
	forceClosed map[int]struct{}

	blockedCap   int
	probeTimeout time.Duration
	probe        ProbeFunc
	reclaimer    Reclaimer
	broker       *events.Broker
}

// Config holds registry construction options. Zero values select the
// defaults used in production.
type Config struct {
	BlockedCap   int
	ProbeTimeout time.Duration
	Probe        ProbeFunc
	Reclaimer    Reclaimer
	Broker       *events.Broker
}

// NewRegistry creates a port registry. One instance serves the whole
// agent process; tests construct isolated ones.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		reserved:     make(map[int]struct{}),
		blocked:      make(map[int]struct{}),
		forceClosed:  make(map[int]struct{}),
		blockedCap:   cfg.BlockedCap,
		probeTimeout: cfg.ProbeTimeout,
		probe:        cfg.Probe,
		reclaimer:    cfg.Reclaimer,
		broker:       cfg.Broker,
	}
	if r.blockedCap <= 0 {
		r.blockedCap = DefaultBlockedCap
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = defaultProbeTimeout
	}
	if r.probe == nil {
		r.probe = dialBindProbe
	}
	if r.reclaimer == nil {
		r.reclaimer = NewOSReclaimer()
	}
	return r
}

// Allocate finds a free port, preferring the given one, reserves it and
// returns it. The search is bounded: the preferred port first, then up
// to 100 probed candidates, the first 20 sampled from the preferred
// port's neighborhood and the rest from the full range. Returns
// ErrNoFreePort when the budget is exhausted.
func (r *Registry) Allocate(preferred int) (int, error) {
	probes := 0

	if preferred >= MinPort && preferred <= MaxPort {
		probes++
		if r.tryReserve(preferred) {
			metrics.PortAllocationsTotal.Inc()
			metrics.PortAllocationProbes.Observe(float64(probes))
			return preferred, nil
		}
	}

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		var candidate int
		if attempt < neighborhoodAttempts {
			candidate = clampPort(preferred - neighborhoodBelow + rand.Intn(neighborhoodBelow+neighborhoodAbove))
		} else {
			candidate = MinPort + rand.Intn(MaxPort-MinPort+1)
		}

		probes++
		if r.tryReserve(candidate) {
			metrics.PortAllocationsTotal.Inc()
			metrics.PortAllocationProbes.Observe(float64(probes))
			return candidate, nil
		}
	}

	metrics.PortAllocationFailuresTotal.Inc()
	metrics.PortAllocationProbes.Observe(float64(probes))
	return 0, fmt.Errorf("allocate near %d: %w", preferred, ErrNoFreePort)
}

// tryReserve attempts to claim a single candidate. The candidate is
// pre-reserved before the probe runs so that two concurrent Allocate
// calls can never both win the same port; the reservation is rolled
// back if the probe finds the port occupied.
func (r *Registry) tryReserve(port int) bool {
	r.mu.Lock()
	if _, ours := r.reserved[port]; ours {
		r.mu.Unlock()
		return false
	}
	if _, bad := r.blocked[port]; bad {
		r.mu.Unlock()
		return false
	}
	r.reserved[port] = struct{}{}
	r.mu.Unlock()

	if r.probe(port, r.probeTimeout) {
		r.mu.Lock()
		delete(r.reserved, port)
		r.rememberBlockedLocked(port)
		r.mu.Unlock()
		r.updateGauges()
		return false
	}

	r.updateGauges()
	r.publish(events.EventPortReserved, port)
	return true
}

// IsOccupied reports whether something on this host holds the port.
// Ports outside the allocatable range are always reported occupied.
// A foreign listener discovered here is remembered in the blocked cache.
func (r *Registry) IsOccupied(port int) bool {
	if port < MinPort || port > MaxPort {
		return true
	}
	if !r.probe(port, r.probeTimeout) {
		return false
	}
	r.mu.Lock()
	if _, ours := r.reserved[port]; !ours {
		r.rememberBlockedLocked(port)
	}
	r.mu.Unlock()
	r.updateGauges()
	return true
}

// Classify reports the agent's view of a port. Own reservations win over
// the blocked cache, the blocked cache wins over a live probe, and a
// live foreign listener wins over available.
func (r *Registry) Classify(port int) types.PortState {
	r.mu.Lock()
	_, ours := r.reserved[port]
	_, bad := r.blocked[port]
	_, closed := r.forceClosed[port]
	r.mu.Unlock()

	switch {
	case ours:
		return types.PortUsedByUs
	case bad:
		return types.PortBlockedByOther
	case closed:
		return types.PortForceClosed
	case r.IsOccupied(port):
		return types.PortOccupiedByOther
	default:
		return types.PortAvailable
	}
}

// Release returns a port to the pool. Idempotent.
func (r *Registry) Release(port int) {
	r.mu.Lock()
	_, had := r.reserved[port]
	delete(r.reserved, port)
	delete(r.forceClosed, port)
	r.mu.Unlock()

	r.updateGauges()
	if had {
		r.publish(events.EventPortReleased, port)
	}
}

// ForceReclaim evicts whatever holds the port so it can be reused:
// it kills the owning OS process, binds and releases the port with
// address reuse to push the OS into relinquishing it, and hastens
// teardown of half-open peers with a few short dials. Every step is
// best-effort. The port always ends up out of reserved/blocked and in
// the force-closed set. Returns true if the kill or the bind succeeded.
func (r *Registry) ForceReclaim(port int) bool {
	logger := log.WithComponent("ports")

	killed := false
	if err := r.reclaimer.KillOwner(port); err != nil {
		logger.Debug().Err(err).Int("port", port).Msg("no process killed for port")
	} else {
		killed = true
	}

	bound := bindAndRelease(port)

	// A closed listener can leave half-open peers behind; poking the
	// port a few times makes the remote side notice.
	for i := 0; i < 3; i++ {
		flushConnection(port)
	}

	r.mu.Lock()
	delete(r.reserved, port)
	delete(r.blocked, port)
	r.forceClosed[port] = struct{}{}
	r.mu.Unlock()
	r.updateGauges()
	r.publish(events.EventPortForceClosed, port)

	ok := killed || bound
	if ok {
		metrics.PortReclaimsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.PortReclaimsTotal.WithLabelValues("failure").Inc()
		logger.Warn().Int("port", port).Msg("force reclaim could neither kill the owner nor rebind the port")
	}
	return ok
}

// Stats is a point-in-time snapshot of the registry's three sets.
type Stats struct {
	Reserved    []int `json:"reserved"`
	Blocked     []int `json:"blocked"`
	ForceClosed []int `json:"force_closed"`
}

// Snapshot returns sorted copies of the registry's sets for status
// reporting.
func (r *Registry) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Reserved:    sortedPorts(r.reserved),
		Blocked:     sortedPorts(r.blocked),
		ForceClosed: sortedPorts(r.forceClosed),
	}
}

// ClearForceClosed drops the force-closed bookkeeping set.
func (r *Registry) ClearForceClosed() {
	r.mu.Lock()
	r.forceClosed = make(map[int]struct{})
	r.mu.Unlock()
	r.updateGauges()
}

// rememberBlockedLocked caches a port observed in foreign hands. The
// cache is dropped wholesale when it outgrows the cap; entries are cheap
// and the cache only exists to short-circuit repeated probes of the
// same dead end.
func (r *Registry) rememberBlockedLocked(port int) {
	r.blocked[port] = struct{}{}
	if len(r.blocked) > r.blockedCap {
		r.blocked = make(map[int]struct{})
	}
}

func (r *Registry) updateGauges() {
	r.mu.Lock()
	reserved, blocked, closed := len(r.reserved), len(r.blocked), len(r.forceClosed)
	r.mu.Unlock()
	metrics.PortsReserved.Set(float64(reserved))
	metrics.PortsBlocked.Set(float64(blocked))
	metrics.PortsForceClosed.Set(float64(closed))
}

func (r *Registry) publish(t events.EventType, port int) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(events.New(t, "", map[string]string{
		"port": strconv.Itoa(port),
	}))
}

func clampPort(port int) int {
	if port < MinPort {
		return MinPort
	}
	if port > MaxPort {
		return MaxPort
	}
	return port
}

func sortedPorts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for port := range set {
		out = append(out, port)
	}
	sort.Ints(out)
	return out
}
