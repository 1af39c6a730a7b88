// Package metrics provides Prometheus metrics for the thistle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NegotiationTurnsTotal tracks applied agent turns by tool and result
	NegotiationTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "negotiation",
			Name:      "turns_total",
			Help:      "Total number of negotiation turns by tool and result",
		},
		[]string{"tool", "result"},
	)

	// NegotiationTerminalTotal tracks negotiations reaching a terminal status
	NegotiationTerminalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "negotiation",
			Name:      "terminal_total",
			Help:      "Total number of negotiations reaching a terminal status",
		},
		[]string{"status", "reason"},
	)

	// NegotiationTurnDuration tracks the time to apply one turn, including persistence
	NegotiationTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "negotiation",
			Name:      "turn_duration_seconds",
			Help:      "Duration of negotiation turns in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tool"},
	)

	// GatewayErrorsTotal tracks failed persistence gateway calls
	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "gateway",
			Name:      "errors_total",
			Help:      "Total number of failed persistence gateway operations",
		},
		[]string{"operation"},
	)

	// DecisionsTotal tracks decision attempts by result
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "decision",
			Name:      "total",
			Help:      "Total number of decision attempts by result",
		},
		[]string{"result"},
	)

	// WinningScore tracks the total score of selected suppliers
	WinningScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "decision",
			Name:      "winning_score",
			Help:      "Total score of the selected supplier",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// EventsPublishedTotal tracks domain events written to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of published events by type and result",
		},
		[]string{"event_type", "result"},
	)
)
