// Package metrics exposes Prometheus instrumentation for FPS open/read
// and CMP decode operations (SPEC_FULL.md §1.1 ambient stack).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles counters and histograms for FPS opens and reads, CMP
// block decodes, and CRC failures. No package of this module updates
// them; they change only when a caller records into them.
// Callers register it with their own prometheus.Registerer (or leave it
// unregistered to collect in-process only via the returned handle).
type Metrics struct {
	FPSOpens          *prometheus.CounterVec
	FPSOpenErrors     *prometheus.CounterVec
	FPSReadDuration    *prometheus.HistogramVec
	FPSReadBytes       *prometheus.CounterVec
	BlockDecodeDuration *prometheus.HistogramVec
	BlockDecodeErrors   *prometheus.CounterVec
	CRCFailures         *prometheus.CounterVec
}

// New constructs a Metrics bundle with the given namespace (e.g. "med").
// It does not register the collectors; call Register to do so.
func New(namespace string) *Metrics {
	return &Metrics{
		FPSOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fps",
			Name:      "opens_total",
			Help:      "Number of FPS Open calls, by file type code.",
		}, []string{"type_code"}),

		FPSOpenErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fps",
			Name:      "open_errors_total",
			Help:      "Number of failed FPS Open calls, by file type code.",
		}, []string{"type_code"}),

		FPSReadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fps",
			Name:      "read_duration_seconds",
			Help:      "Duration of FPS Read calls, by read mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		FPSReadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fps",
			Name:      "read_bytes_total",
			Help:      "Bytes read via FPS Read, by read mode.",
		}, []string{"mode"}),

		BlockDecodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cmp",
			Name:      "block_decode_duration_seconds",
			Help:      "Duration of CMP block decode calls, by algorithm.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"algorithm"}),

		BlockDecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cmp",
			Name:      "block_decode_errors_total",
			Help:      "Number of failed CMP block decode calls, by algorithm.",
		}, []string{"algorithm"}),

		CRCFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "crc_failures_total",
			Help:      "Number of CRC validation failures, by component (header, block, record).",
		}, []string{"component"}),
	}
}

// Collectors returns every collector in the bundle, for bulk
// registration: registerer.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FPSOpens,
		m.FPSOpenErrors,
		m.FPSReadDuration,
		m.FPSReadBytes,
		m.BlockDecodeDuration,
		m.BlockDecodeErrors,
		m.CRCFailures,
	}
}

// Register registers every collector in the bundle with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
