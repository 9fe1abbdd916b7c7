package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_notifications_sent_total",
			Help: "Total number of notifications delivered to the mail provider",
		},
		[]string{"template"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_notifications_failed_total",
			Help: "Total number of notifications that could not be delivered",
		},
		[]string{"template", "reason"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tender_notification_dispatch_duration_seconds",
			Help:    "Duration of a notification job dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"template"},
	)

	SendsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tender_notification_sends_in_flight",
			Help: "Number of notification sends currently in flight",
		},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_lifecycle_transitions_total",
			Help: "Total number of applied tender and submission status transitions",
		},
		[]string{"entity", "to"},
	)
)
