/*
Package ports owns the node's game-server port space.

The Registry tracks three disjoint sets of ports: reserved (handed out
by this agent and not yet released), blocked (observed in the hands of
some foreign process, a bounded negative cache), and force-closed
(forcibly reclaimed, kept for observability).

# Allocation

Allocate prefers the caller's configured port and falls back to a
bounded randomized search: 20 candidates from the preferred port's
neighborhood, then up to 80 from the full [1024, 65535] range. Every
candidate is pre-reserved before its occupancy probe runs, so two
launches racing for the same port can never both win it. A search that
exhausts the budget returns ErrNoFreePort; that is fatal for the launch
in question and must not be retried in a loop.

# Probing

A port is occupied if a local connection to it succeeds or a test bind
fails. Probes never return errors: timeouts and refused connections are
just answers. Foreign listeners discovered while probing land in the
blocked cache so repeated allocations do not re-probe the same dead
end; when the cache outgrows its cap it is dropped wholesale.

# Reclamation

ForceReclaim evicts a squatter when a port must be reused: it kills the
owning process (lsof on unix, netstat/taskkill on windows, behind the
Reclaimer interface), rebinds the port with address reuse, and pokes
lingering half-open peers. All steps are best-effort and the call never
fails louder than a warning log.
*/
package ports
