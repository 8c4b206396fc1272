package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"doccustody/internal/classifier"
	"doccustody/internal/model"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	uploads            *prometheus.CounterVec
	classifierDuration prometheus.Histogram
	classifierFailures *prometheus.CounterVec
	anchorAttempts     *prometheus.CounterVec
	integrityChecks    *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uploads_total",
				Help: "Uploads processed, by verification decision.",
			},
			[]string{"decision"},
		),
		classifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "classifier_request_duration_seconds",
			Help:    "Latency of classifier calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		classifierFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifier_failures_total",
				Help: "Classifier calls that produced no verdict, by failure kind.",
			},
			[]string{"kind"},
		),
		anchorAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anchor_attempts_total",
				Help: "Anchoring attempts after a record was stored, by result.",
			},
			[]string{"result"},
		),
		integrityChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "integrity_checks_total",
				Help: "Integrity checks, by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.uploads, m.classifierDuration, m.classifierFailures, m.anchorAttempts, m.integrityChecks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) upload(d model.Decision) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) classified(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.classifierDuration.Observe(elapsed.Seconds())
	if err != nil {
		kind := string(classifier.KindOf(err))
		if kind == "" {
			kind = "other"
		}
		m.classifierFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) anchor(result string) {
	if m == nil {
		return
	}
	m.anchorAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) integrity(result string) {
	if m == nil {
		return
	}
	m.integrityChecks.WithLabelValues(result).Inc()
}
