package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Port registry metrics
	PortsReserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_ports_reserved",
			Help: "Number of ports currently reserved by this agent",
		},
	)

	PortsBlocked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_ports_blocked",
			Help: "Number of ports cached as held by foreign processes",
		},
	)

	PortsForceClosed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_ports_force_closed",
			Help: "Number of ports the agent has forcibly reclaimed since the counter was last cleared",
		},
	)

	PortAllocationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_port_allocations_total",
			Help: "Total number of successful port allocations",
		},
	)

	PortAllocationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_port_allocation_failures_total",
			Help: "Total number of port allocations that exhausted the attempt budget",
		},
	)

	PortAllocationProbes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_port_allocation_probes",
			Help:    "Number of occupancy probes performed per allocation",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	PortReclaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_port_reclaims_total",
			Help: "Total number of force reclaim attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Launch scheduler metrics
	LaunchesPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_launches_pending",
			Help: "Number of launches waiting for an admission slot",
		},
	)

	LaunchesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_launches_active",
			Help: "Number of launches currently mid-start",
		},
	)

	LaunchesAdmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_launches_admitted_total",
			Help: "Total number of launches admitted by the scheduler",
		},
	)

	LaunchesCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_launches_cancelled_total",
			Help: "Total number of launches cancelled while pending",
		},
	)

	LaunchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_launch_failures_total",
			Help: "Total number of launches that failed to start",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_tick_duration_seconds",
			Help:    "Duration of one scheduler admission tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(PortsReserved)
	prometheus.MustRegister(PortsBlocked)
	prometheus.MustRegister(PortsForceClosed)
	prometheus.MustRegister(PortAllocationsTotal)
	prometheus.MustRegister(PortAllocationFailuresTotal)
	prometheus.MustRegister(PortAllocationProbes)
	prometheus.MustRegister(PortReclaimsTotal)
	prometheus.MustRegister(LaunchesPending)
	prometheus.MustRegister(LaunchesActive)
	prometheus.MustRegister(LaunchesAdmittedTotal)
	prometheus.MustRegister(LaunchesCancelledTotal)
	prometheus.MustRegister(LaunchFailuresTotal)
	prometheus.MustRegister(TickDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
