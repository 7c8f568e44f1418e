// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition results
const (
	ResultApplied  = "applied"
	ResultReplayed = "replayed"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleet_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	GRPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_grpc_requests_total",
		Help: "Total gRPC requests",
	}, []string{"method", "code"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_transitions_total",
		Help: "Transition commands by action and result",
	}, []string{"action", "result"})

	LedgerAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_ledger_appends_total",
		Help: "Movements appended to the ledger by kind",
	}, []string{"kind"})

	MaintenanceOverdueAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_maintenance_overdue_alerts_total",
		Help: "Overdue maintenance alerts sent",
	})

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_job_runs_total",
		Help: "Background job runs by job and outcome",
	}, []string{"job", "outcome"})
)
