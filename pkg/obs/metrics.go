package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the booking/messaging counters exported on /metrics.
type Metrics struct {
	BookingsCreated    *prometheus.CounterVec
	BookingConflicts   prometheus.Counter
	BookingTransitions *prometheus.CounterVec
	MessagesPosted     prometheus.Counter
	ThreadsStarted     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_bookings_created_total",
			Help: "Bookings admitted, by initial status",
		}, []string{"status"}),

		BookingConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "hub_booking_conflicts_total",
			Help: "Booking requests rejected for overlapping an existing reservation",
		}),

		BookingTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_booking_transitions_total",
			Help: "Booking status transitions, by target status",
		}, []string{"to"}),

		MessagesPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "hub_messages_posted_total",
			Help: "Messages appended to threads",
		}),

		ThreadsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "hub_threads_started_total",
			Help: "Conversation threads created",
		}),
	}
}
