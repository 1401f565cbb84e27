// Package metrics holds the Prometheus collectors exposed on /metrics.
//
// Collectors register with the default registry at init through promauto.
// HTTP metrics are recorded by the middleware package; the domain counters
// are bumped by the service layer after a successful write.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "companion_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_rate_limited_total",
			Help: "Requests rejected by the login rate limiter",
		},
	)

	// Domain metrics
	SymptomsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_symptoms_recorded_total",
			Help: "Symptoms logged, by symptom type",
		},
		[]string{"type"},
	)

	AppointmentsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_appointments_created_total",
			Help: "Appointments scheduled",
		},
	)

	AppointmentsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_appointments_completed_total",
			Help: "Appointment updates that marked the appointment completed",
		},
	)

	AppointmentsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_appointments_deleted_total",
			Help: "Appointments deleted by their owner",
		},
	)

	// Auth metrics
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_logins_total",
			Help: "Login callbacks by outcome",
		},
		[]string{"result"},
	)

	SessionsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_sessions_pruned_total",
			Help: "Expired sessions removed by the background pruner",
		},
	)
)
