package launch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/playgrid/warden/pkg/log"
	"github.com/playgrid/warden/pkg/metrics"
	"github.com/playgrid/warden/pkg/types"
)

const (
	// DefaultTickInterval is the admission loop interval.
	DefaultTickInterval = 200 * time.Millisecond

	// DefaultMaxConcurrentStarts caps simultaneous mid-start launches.
	DefaultMaxConcurrentStarts = 2
)

// Process is one managed server launch, owned by the supervision
// collaborator. Start is asynchronous and must not be called twice;
// Phase may be read at any time from any goroutine.
type Process interface {
	Spec() *types.ServerSpec
	Start()
	Phase() types.ProcessPhase
}

// Registry tracks every process known to the agent, pending or running.
// Register/Unregister bracket queue membership; Lookup supports
// cancellation by service identity.
type Registry interface {
	Register(p Process)
	Unregister(p Process)
	Lookup(serviceID string) (Process, bool)
}

// Notifier is a best-effort state-changed hook. It is invoked
// fire-and-forget after any operation or tick that changed queue or
// active-set membership and must tolerate being called concurrently.
type Notifier func()

// Scheduler is the node's launch admission controller. Callers enqueue
// launches; a background tick loop admits them in priority order while
// keeping the number of simultaneous starts under the configured cap.
type Scheduler struct {
	registry Registry
	notify   Notifier

	maxConcurrentStarts int
	tickInterval        time.Duration

	// active is keyed by the Process value itself, not its service
	// identity: two requests for the same service are distinct
	// launches and must each hold and release their own slot.
	queue       *pendingQueue
	active      sync.Map // Process -> struct{}
	activeCount atomic.Int64

	stopCh chan struct{}
	logger zerolog.Logger
}

// Config holds scheduler construction options.
type Config struct {
	Registry            Registry
	Notifier            Notifier
	MaxConcurrentStarts int
	TickInterval        time.Duration
}

// NewScheduler creates a launch scheduler. One instance serves the
// whole agent; tests construct isolated ones.
func NewScheduler(cfg Config) *Scheduler {
	s := &Scheduler{
		registry:            cfg.Registry,
		notify:              cfg.Notifier,
		maxConcurrentStarts: cfg.MaxConcurrentStarts,
		tickInterval:        cfg.TickInterval,
		queue:               newPendingQueue(),
		stopCh:              make(chan struct{}),
		logger:              log.WithComponent("scheduler"),
	}
	if s.maxConcurrentStarts <= 0 {
		s.maxConcurrentStarts = DefaultMaxConcurrentStarts
	}
	if s.tickInterval <= 0 {
		s.tickInterval = DefaultTickInterval
	}
	return s
}

// Enqueue adds a launch to the pending queue. It always succeeds; the
// launch is admitted by a later tick once a slot is free.
func (s *Scheduler) Enqueue(p Process) {
	s.queue.push(p)
	if s.registry != nil {
		s.registry.Register(p)
	}
	metrics.LaunchesPending.Set(float64(s.queue.len()))
	s.logger.Debug().
		Str("service_id", p.Spec().ServiceID).
		Int("priority", p.Spec().StartPriority).
		Msg("launch queued")
	s.notifyChanged()
}

// Cancel removes a launch from the pending queue if it is still
// waiting. Already-admitted launches are not touched; cancelling a
// launch that was never enqueued is a no-op.
func (s *Scheduler) Cancel(p Process) {
	removed := s.queue.remove(p)
	if s.registry != nil {
		s.registry.Unregister(p)
	}
	if removed {
		metrics.LaunchesPending.Set(float64(s.queue.len()))
		metrics.LaunchesCancelledTotal.Inc()
		s.logger.Debug().Str("service_id", p.Spec().ServiceID).Msg("launch cancelled")
	}
	s.notifyChanged()
}

// Clear drops every pending launch. Launches already mid-start run to
// completion.
func (s *Scheduler) Clear() {
	dropped := s.queue.drain()
	for _, p := range dropped {
		if s.registry != nil {
			s.registry.Unregister(p)
		}
	}
	metrics.LaunchesPending.Set(0)
	if len(dropped) > 0 {
		s.logger.Info().Int("dropped", len(dropped)).Msg("pending queue cleared")
	}
	s.notifyChanged()
}

// PendingAndActiveCount reports the node's launch backlog: launches
// waiting for a slot plus launches currently mid-start.
func (s *Scheduler) PendingAndActiveCount() int {
	return s.queue.len() + int(s.activeCount.Load())
}

// Start begins the admission loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the admission loop. Launches already started keep running.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeTick()
		case <-s.stopCh:
			return
		}
	}
}

// safeTick runs one admission cycle. Whatever goes wrong inside a tick
// is logged and the loop carries on at the next interval.
func (s *Scheduler) safeTick() {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Interface("panic", rec).Msg("scheduler tick panicked")
		}
	}()

	start := time.Now()
	changed := s.sweepSettled()
	if s.admitNext() {
		changed = true
	}
	metrics.TickDuration.Observe(time.Since(start).Seconds())

	if changed {
		s.notifyChanged()
	}
}

// sweepSettled frees the admission slot of every active launch whose
// process is no longer mid-start. This is the only place slots are
// released.
func (s *Scheduler) sweepSettled() bool {
	removed := false
	s.active.Range(func(key, _ any) bool {
		p := key.(Process)
		if p.Phase().Settled() {
			s.active.Delete(key)
			s.activeCount.Add(-1)
			removed = true
			s.logger.Debug().
				Str("service_id", p.Spec().ServiceID).
				Str("phase", string(p.Phase())).
				Msg("launch settled, slot freed")
		}
		return true
	})
	if removed {
		metrics.LaunchesActive.Set(float64(s.activeCount.Load()))
	}
	return removed
}

// admitNext starts the highest-priority pending launch if a slot is
// free. The launch joins the active set before its start goroutine can
// observably change any phase, so the slot count never under-reports.
func (s *Scheduler) admitNext() bool {
	if int(s.activeCount.Load()) >= s.maxConcurrentStarts {
		return false
	}
	p, ok := s.queue.pop()
	if !ok {
		return false
	}

	id := p.Spec().ServiceID
	s.active.Store(p, struct{}{})
	s.activeCount.Add(1)
	metrics.LaunchesPending.Set(float64(s.queue.len()))
	metrics.LaunchesActive.Set(float64(s.activeCount.Load()))
	metrics.LaunchesAdmittedTotal.Inc()

	s.logger.Info().
		Str("service_id", id).
		Int("priority", p.Spec().StartPriority).
		Msg("launch admitted")

	// The start runs on its own goroutine so a slow or hanging start
	// never stalls the tick loop or other admissions. A failed start
	// is the process's own problem: it marks itself closed and the
	// next sweep reclaims the slot.
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("service_id", id).
					Msg("launch start panicked")
			}
		}()
		p.Start()
	}()
	return true
}

func (s *Scheduler) notifyChanged() {
	if s.notify == nil {
		return
	}
	go s.notify()
}
