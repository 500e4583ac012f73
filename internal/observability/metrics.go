package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. Label values are drawn from small fixed sets so
// cardinality stays bounded.
var (
	// availabilityChecks counts slot checks by result
	// (available, slot_not_allowed, slot_taken, system_error).
	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "availability_checks_total",
			Help: "Total number of slot availability checks by result.",
		},
		[]string{"result"},
	)

	// appointmentsBooked counts booking submissions by outcome
	// (created, replayed, invalid, slot_not_allowed, slot_taken, system_error, persistence_error).
	appointmentsBooked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total number of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	// statusChanges counts admin status updates by target status.
	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_status_changes_total",
			Help: "Total number of appointment status changes by target status.",
		},
		[]string{"status"},
	)

	// notificationsSent counts outbound emails by kind and outcome.
	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notification attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(availabilityChecks, appointmentsBooked, statusChanges, notificationsSent)
}

// ObserveAvailabilityCheck records one availability check.
func ObserveAvailabilityCheck(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

// ObserveBooking records one booking submission outcome.
func ObserveBooking(outcome string) {
	appointmentsBooked.WithLabelValues(outcome).Inc()
}

// ObserveStatusChange records one successful status change.
func ObserveStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

// ObserveNotification records one send attempt; ok selects the outcome label.
func ObserveNotification(kind string, ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	notificationsSent.WithLabelValues(kind, outcome).Inc()
}
