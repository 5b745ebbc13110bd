package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// publishDuration doubles as the publish counter through its _count series.
var publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "kafka_publish_duration_seconds",
	Help:    "Time spent writing one event to Kafka, by topic and outcome.",
	Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
}, []string{"topic", "outcome"})
