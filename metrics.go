package linuxperf

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "linuxperf"

// ImportMetrics counts what the importers see.  One instance is
// normally shared by every import in a process.  A nil
// `*ImportMetrics` is valid and counts nothing.
type ImportMetrics struct {
	lines         prometheus.Counter
	events        *prometheus.CounterVec
	unknownEvents *prometheus.CounterVec
	importErrors  prometheus.Counter
	abortedImport prometheus.Counter
}

// Create the import counters and register them with `reg`.  If `reg`
// is nil, the counters are created but not registered.
func NewImportMetrics(reg prometheus.Registerer) (*ImportMetrics, error) {
	im := &ImportMetrics{
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_total",
			Help:      "the number of trace records scanned",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "the number of recognized trace records by event type",
		},
			[]string{"event"},
		),
		unknownEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unknown_events_total",
			Help:      "the number of trace records with an event type we don't handle",
		},
			[]string{"event"},
		),
		importErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "import_errors_total",
			Help:      "the number of line-level import errors",
		}),
		abortedImport: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "aborted_imports_total",
			Help:      "the number of imports rolled back for lack of a clock sync",
		}),
	}

	if reg != nil {
		for _, c := range im.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return im, nil
}

func (im *ImportMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		im.lines,
		im.events,
		im.unknownEvents,
		im.importErrors,
		im.abortedImport,
	}
}

func (im *ImportMetrics) incLines() {
	if im != nil {
		im.lines.Inc()
	}
}

func (im *ImportMetrics) incEvent(name string) {
	if im != nil {
		im.events.WithLabelValues(name).Inc()
	}
}

func (im *ImportMetrics) incUnknownEvent(name string) {
	if im != nil {
		im.unknownEvents.WithLabelValues(name).Inc()
	}
}

func (im *ImportMetrics) incImportErrors() {
	if im != nil {
		im.importErrors.Inc()
	}
}

func (im *ImportMetrics) incAbortedImports() {
	if im != nil {
		im.abortedImport.Inc()
	}
}
