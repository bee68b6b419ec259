package genfix

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genfix_llm_calls_total",
			Help: "Completion calls by provider, purpose and outcome.",
		},
		[]string{"provider", "purpose", "outcome"},
	)

	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genfix_llm_call_duration_seconds",
			Help:    "Latency of completion calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "purpose"},
	)

	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genfix_cycles_total",
			Help: "Finished generation cycles by terminal status.",
		},
		[]string{"status"},
	)
)

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
