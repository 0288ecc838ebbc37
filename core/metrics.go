package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_verdicts_total",
	Help: "Number of moderation verdicts, by source and appropriateness",
}, []string{"source", "appropriate"})

var classifierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "moderation_classifier_duration_seconds",
	Help: "Duration of external classifier calls",
}, []string{"classifier"})

var classifierErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_classifier_errors_total",
	Help: "Number of failed external classifier calls",
}, []string{"classifier"})
