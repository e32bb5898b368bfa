package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the retrieval cascade: attempts, acceptances and
// failures per tier, validator verdicts, cache hits, and end-to-end answer
// latency and confidence.
type PipelineMetrics struct {
	service string

	tierAttempts  *prometheus.CounterVec
	tierAccepted  *prometheus.CounterVec
	tierFailures  *prometheus.CounterVec
	verdictsTotal *prometheus.CounterVec
	cacheHits     prometheus.Counter

	answerDuration   *prometheus.HistogramVec
	answerConfidence prometheus.Histogram
}

func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	tierAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "tier_attempts_total",
			Help:      "Retrieval tier attempts.",
		},
		[]string{"service", "tier"},
	)
	tierAccepted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "tier_accepted_total",
			Help:      "Answers accepted per tier, including the safety fallback tier.",
		},
		[]string{"service", "tier"},
	)
	tierFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "tier_failures_total",
			Help:      "Tier attempts that failed by reason.",
		},
		[]string{"service", "tier", "reason"},
	)
	verdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "validation",
			Name:      "verdicts_total",
			Help:      "Validator verdicts for tier candidates.",
		},
		[]string{"service", "verdict"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Answers served from the response cache.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency by accepted tier.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "tier"},
	)
	answerConfidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "answer_confidence",
			Help:      "Distribution of final answer confidence.",
			Buckets:   []float64{0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		tierAttempts,
		tierAccepted,
		tierFailures,
		verdictsTotal,
		cacheHits,
		answerDuration,
		answerConfidence,
	)

	return &PipelineMetrics{
		service:          service,
		tierAttempts:     tierAttempts,
		tierAccepted:     tierAccepted,
		tierFailures:     tierFailures,
		verdictsTotal:    verdictsTotal,
		cacheHits:        cacheHits,
		answerDuration:   answerDuration,
		answerConfidence: answerConfidence,
	}
}

func (m *PipelineMetrics) TierAttempt(tier int) {
	m.tierAttempts.WithLabelValues(m.service, strconv.Itoa(tier)).Inc()
}

func (m *PipelineMetrics) TierAccepted(tier int) {
	m.tierAccepted.WithLabelValues(m.service, strconv.Itoa(tier)).Inc()
}

func (m *PipelineMetrics) TierFailure(tier int, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.tierFailures.WithLabelValues(m.service, strconv.Itoa(tier), reason).Inc()
}

func (m *PipelineMetrics) Verdict(verdict string) {
	if verdict == "" {
		verdict = "unknown"
	}
	m.verdictsTotal.WithLabelValues(m.service, verdict).Inc()
}

func (m *PipelineMetrics) CacheHit() {
	m.cacheHits.Inc()
}

func (m *PipelineMetrics) ObserveAnswer(tier int, confidence float64, duration time.Duration) {
	m.answerDuration.WithLabelValues(m.service, strconv.Itoa(tier)).Observe(duration.Seconds())
	m.answerConfidence.Observe(confidence)
}
