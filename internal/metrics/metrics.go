// README: Prometheus collectors shared by the booking service, jobs and HTTP layer.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gohappygo/internal/types"
)

var (
	BookingOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gohappygo_booking_operations_total",
		Help: "Booking operations, labeled by operation and outcome class",
	}, []string{"operation", "outcome"})

	BookingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gohappygo_booking_operation_duration_seconds",
		Help:    "Latency of booking operations including the database unit of work",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	ReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gohappygo_fund_release_failures_total",
		Help: "Payment gateway release attempts that failed and left a transaction pending",
	})

	CacheInvalidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gohappygo_cache_invalidation_failures_total",
		Help: "Mutations whose cache invalidation failed; views stay stale until TTL",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gohappygo_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gohappygo_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})
)

// Outcome buckets an error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrDependency):
		return "dependency"
	}
	return "error"
}
