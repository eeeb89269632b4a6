package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "bookings_created_total",
			Help:      "Successfully created bookings.",
		},
	)

	conflictsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected due to date conflicts.",
		},
	)

	availabilityChecks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carrental",
			Name:      "availability_checks_total",
			Help:      "Availability checks served.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, conflictsDetected, availabilityChecks)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingsCreated() { bookingsCreated.Inc() }

func IncConflicts() { conflictsDetected.Inc() }

func IncAvailabilityChecks() { availabilityChecks.Inc() }
