package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	reservationConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "reservation_conflict_total",
			Help:      "Count of reservation attempts rejected with a slot conflict.",
		},
	)

	slotsBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "slots_blocked_total",
			Help:      "Count of slot block/unblock mutations.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by handler.",
		},
		[]string{"handler"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "garagebook",
			Name:      "availability_cache_lookups_total",
			Help:      "Count of availability cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers all metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, bookingCancelled, reservationConflict,
			slotsBlocked, httpRequests, cacheLookups,
		)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncReservationConflict() {
	reservationConflict.Inc()
}

func IncSlotsBlocked(op string, n int) {
	slotsBlocked.WithLabelValues(op).Add(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}
