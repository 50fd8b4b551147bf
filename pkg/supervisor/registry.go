package supervisor

import (
	"sync"

	"github.com/playgrid/warden/pkg/launch"
)

// InstanceRegistry is the node's directory of known launches, pending
// and running. It implements launch.Registry.
type InstanceRegistry struct {
	mu    sync.RWMutex
	procs map[string]launch.Process
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{
		procs: make(map[string]launch.Process),
	}
}

// Register records a process under its service identity. A re-register
// for the same service replaces the previous entry.
func (r *InstanceRegistry) Register(p launch.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[p.Spec().ServiceID] = p
}

// Unregister removes a process. Idempotent; only removes the entry if
// it still refers to the given process.
func (r *InstanceRegistry) Unregister(p launch.Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.procs[p.Spec().ServiceID]; ok && cur == p {
		delete(r.procs, p.Spec().ServiceID)
	}
}

// Lookup returns the process registered for a service identity.
func (r *InstanceRegistry) Lookup(serviceID string) (launch.Process, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[serviceID]
	return p, ok
}

// List returns all registered processes.
func (r *InstanceRegistry) List() []launch.Process {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]launch.Process, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	return out
}

// Count returns the number of registered processes.
func (r *InstanceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procs)
}
