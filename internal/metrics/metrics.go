// Package metrics declares the prometheus collectors of the service.
// Collectors are registered on the default registry and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreakDecisions counts evaluator outcomes by reason (first_visit, same_day, consecutive, reset, future).
	StreakDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_streak_decisions_total",
		Help: "Streak evaluator decisions by reason.",
	}, []string{"reason"})

	// StreakConflicts counts compare-and-swap conflicts on streak writes.
	StreakConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_streak_conflicts_total",
		Help: "Streak writes rejected because the stored state changed.",
	}, []string{"backend"})

	// StreakFailures counts streak load/save failures converted into notifications.
	StreakFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_streak_failures_total",
		Help: "Streak evaluations abandoned because of storage errors.",
	}, []string{"backend"})

	// PointsGranted sums granted points.
	PointsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_points_granted_total",
		Help: "Points granted by source and backend.",
	}, []string{"source", "backend"})

	// PointsGrantFailures counts grants that failed to persist.
	PointsGrantFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_points_grant_failures_total",
		Help: "Point grants that failed to persist.",
	}, []string{"backend"})

	// Reconciliations counts reconciliation passes by result (ok, corrected).
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_points_reconciliations_total",
		Help: "Points reconciliation passes by result.",
	}, []string{"result"})

	// Notifications counts delivered notifications by sink and variant.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_notifications_total",
		Help: "Notifications delivered by sink and variant.",
	}, []string{"sink", "variant"})

	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "progress_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
