/*
Package metrics exposes Prometheus metrics and health checking for the
Warden agent.

Metrics are package-level collectors registered at init time; components
update them directly as state changes rather than through a polling
collector, since all interesting state lives in-process. Handler returns
the promhttp handler for /metrics; HealthHandler, ReadyHandler and
LivenessHandler serve the JSON health endpoints.

Exported series use the warden_ prefix: port registry occupancy
(warden_ports_reserved, warden_ports_blocked, warden_ports_force_closed),
allocation outcomes, scheduler queue depth and admission counters, and
tick latency.
*/
package metrics
