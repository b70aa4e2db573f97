// Package metrics provides Prometheus metrics for LED commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command status label values
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusTimedOut = "timed_out"
	StatusError    = "error"
)

var (
	ledCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "led_service",
		Name:      "commands_total",
		Help:      "LED control requests by board, action and outcome",
	}, []string{"board", "action", "status"})

	ledCommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "led_service",
		Name:      "command_duration_seconds",
		Help:      "Time from connect to reply or timeout",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"board"})

	ledWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "led_service",
		Name:      "warnings_total",
		Help:      "Capability warnings produced while encoding commands",
	}, []string{"board"})
)

// RecordCommand counts one finished control request and observes its duration
func RecordCommand(board, action, status string, seconds float64) {
	if action == "" {
		action = "none"
	}
	ledCommands.WithLabelValues(board, action, status).Inc()
	ledCommandDuration.WithLabelValues(board).Observe(seconds)
}

// RecordWarnings adds n capability warnings for board
func RecordWarnings(board string, n int) {
	if n <= 0 {
		return
	}
	ledWarnings.WithLabelValues(board).Add(float64(n))
}
