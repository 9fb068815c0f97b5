package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var PayloadsFetched *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "copilot_metrics_payloads_fetched_total",
	Help: "Raw payloads fetched from the provider, by feed and outcome",
}, []string{"feed", "outcome"})

var ValidationFailures *prometheus.CounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "copilot_metrics_validation_failures_total",
	Help: "Payloads rejected by schema validation, by failure kind",
}, []string{"kind"})

var RecordsNormalized prometheus.Counter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "copilot_metrics_records_normalized_total",
	Help: "Canonical daily records produced by the normalizer",
})

var SeatsAnalyzed prometheus.Gauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "copilot_seats_analyzed",
	Help: "Seats covered by the most recent seat utilization analysis",
})
