// Package metrics records ledger activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the collectors for one ledger. Each instance registers on its
// own registry so several ledgers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	appendsTotal        prometheus.Counter
	verificationsTotal  *prometheus.CounterVec
	chainLength         prometheus.Gauge
	verifyDuration      prometheus.Histogram
	tamperedBlocksTotal prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		appendsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "minichain_appends_total",
			Help: "Total blocks appended to the ledger.",
		}),
		verificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "minichain_verifications_total",
			Help: "Total chain verifications by result.",
		}, []string{"result"}),
		chainLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "minichain_chain_length",
			Help: "Number of blocks in the ledger, genesis included.",
		}),
		verifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "minichain_verify_duration_seconds",
			Help:    "Duration of full-chain verification in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 7),
		}),
		tamperedBlocksTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "minichain_tampered_blocks_total",
			Help: "Total blocks deliberately corrupted through the tamper helper.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordAppend records an append and the resulting chain length.
func (m *Metrics) RecordAppend(length int) {
	m.appendsTotal.Inc()
	m.chainLength.Set(float64(length))
}

// SetLength sets the chain length gauge.
func (m *Metrics) SetLength(length int) {
	m.chainLength.Set(float64(length))
}

// RecordVerification records a verification outcome and its duration.
func (m *Metrics) RecordVerification(valid bool, d time.Duration) {
	if valid {
		m.verificationsTotal.WithLabelValues("valid").Inc()
	} else {
		m.verificationsTotal.WithLabelValues("invalid").Inc()
	}
	m.verifyDuration.Observe(d.Seconds())
}

// RecordTamper records a deliberate corruption.
func (m *Metrics) RecordTamper() {
	m.tamperedBlocksTotal.Inc()
}

// WriteText writes every gathered metric family to w in the Prometheus text
// exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
