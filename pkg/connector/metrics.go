// Copyright 2024-2026 Aiku AI

package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	eventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackcord_events_received_total",
			Help: "Slack events received",
		},
		[]string{"transport"}, // "http" or "socket"
	)

	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackcord_events_skipped_total",
			Help: "Slack events that were not relayed",
		},
		[]string{"reason"},
	)

	// Relay
	notificationsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slackcord_notifications_enqueued_total",
			Help: "Notifications accepted by the relay queue",
		},
	)

	notificationsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slackcord_notifications_rejected_total",
			Help: "Notifications rejected because the relay queue was full",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slackcord_queue_depth",
			Help: "Notifications waiting in the relay queue",
		},
	)

	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackcord_deliveries_total",
			Help: "Notification deliveries per sink",
		},
		[]string{"sink", "status"}, // "ok" or "error"
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackcord_delivery_duration_seconds",
			Help:    "Time taken to deliver one notification to one sink",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"sink"},
	)

	// HTTP
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackcord_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackcord_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)
