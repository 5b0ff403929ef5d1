package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beacon_workers_total",
			Help: "Number of registered workers by tier and derived status",
		},
		[]string{"tier", "status"},
	)

	TierLoadAverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beacon_tier_load_average",
			Help: "Mean reported load per tier (absent when the tier is empty)",
		},
		[]string{"tier"},
	)

	TasksCompletedSum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_tasks_completed_sum",
			Help: "Sum of tasks_completed across all registered workers",
		},
	)

	SystemHealthState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "beacon_system_health",
			Help: "Aggregate system health (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	// Registry metrics
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_registrations_total",
			Help: "Total worker registrations by tier",
		},
		[]string{"tier"},
	)

	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_heartbeats_total",
			Help: "Total worker heartbeats by tier",
		},
		[]string{"tier"},
	)

	RegressionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_heartbeat_regressions_total",
			Help: "Heartbeats whose tasks_completed regressed and was rejected",
		},
	)

	// Router metrics
	RouteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_route_requests_total",
			Help: "Routed requests by outcome (ok, failover_ok, failed, timeout, no_candidate)",
		},
		[]string{"outcome"},
	)

	FailoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_failovers_total",
			Help: "Requests retried against an alternate coordinator",
		},
	)

	CoordinatorsSuspect = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_coordinators_suspect",
			Help: "Coordinators currently marked suspect",
		},
	)

	// Directory metrics
	CoordinatorsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_coordinators_total",
			Help: "Registered edge coordinators",
		},
	)

	DirectoryWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_directory_writes_total",
			Help: "Persistent writes performed by the coordinator directory",
		},
	)

	DirectoryWriteSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_directory_write_skips_total",
			Help: "Persistent writes skipped by reason (interval, budget)",
		},
		[]string{"reason"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_api_requests_total",
			Help: "Total API requests by path and status",
		},
		[]string{"path", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(TierLoadAverage)
	prometheus.MustRegister(TasksCompletedSum)
	prometheus.MustRegister(SystemHealthState)
	prometheus.MustRegister(RegistrationsTotal)
	prometheus.MustRegister(HeartbeatsTotal)
	prometheus.MustRegister(RegressionsTotal)
	prometheus.MustRegister(RouteRequestsTotal)
	prometheus.MustRegister(FailoversTotal)
	prometheus.MustRegister(CoordinatorsSuspect)
	prometheus.MustRegister(CoordinatorsTotal)
	prometheus.MustRegister(DirectoryWritesTotal)
	prometheus.MustRegister(DirectoryWriteSkipsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
