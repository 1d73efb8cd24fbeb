package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReservationsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tessera_reservations_admitted_total",
		Help: "Reservations that passed the capacity check and were created.",
	})

	ReservationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_reservations_rejected_total",
		Help: "Reservation attempts rejected, by failure kind.",
	}, []string{"reason"})

	ReservationsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tessera_reservations_cancelled_total",
		Help: "Reservations cancelled by their holder or an operator.",
	})

	EventsTerminated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tessera_events_terminated_total",
		Help: "Events force-terminated by the lifecycle reconciler.",
	})

	ReconcilerSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tessera_reconciler_sweeps_total",
		Help: "Lifecycle reconciler ticks executed.",
	})

	ReconcilerExamined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tessera_reconciler_examined_total",
		Help: "Events examined by the lifecycle reconciler.",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tessera_notification_failures_total",
		Help: "Notification publish failures, by subject.",
	}, []string{"subject"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tessera_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
