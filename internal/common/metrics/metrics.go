// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_handled_total",
			Help: "Total number of platform events handled by worker",
		},
		[]string{"event_kind"},
	)

	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_failed_total",
			Help: "Total number of platform events whose handler failed",
		},
		[]string{"event_kind", "error_code"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bot_event_duration_seconds",
			Help: "Duration of event handling in seconds",
		},
		[]string{"event_kind"},
	)

	EventsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_events_active",
			Help: "Number of events currently being handled",
		},
		[]string{"event_kind"},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_handler_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"event_kind"},
	)

	MembersWelcomed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_members_welcomed_total",
			Help: "Total number of welcome messages posted",
		},
	)

	RequestsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_requests_opened_total",
			Help: "Total number of department requests opened",
		},
		[]string{"department"},
	)

	RequestsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_requests_resolved_total",
			Help: "Total number of department requests closed by a leader",
		},
		[]string{"department", "verdict"},
	)

	RequestsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_requests_expired_total",
			Help: "Total number of department requests closed by the stale request sweep",
		},
	)
)
