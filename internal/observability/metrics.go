package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bkg_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bkg_bookings_created_total",
			Help: "Bookings persisted, by item type",
		},
		[]string{"type"},
	)

	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bkg_booking_conflicts_total",
			Help: "Booking requests rejected as duplicates, by item type",
		},
		[]string{"type"},
	)

	TicketFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bkg_ticket_failures_total",
			Help: "Post-persistence ticket failures, by stage",
		},
		[]string{"stage"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bkg_deliveries_total",
			Help: "Ticket delivery attempts, by result",
		},
		[]string{"result"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bkg_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bkg_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bkg_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bkg_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
