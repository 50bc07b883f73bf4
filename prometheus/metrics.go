// Package prometheus records crawl metrics and writes them in the
// Prometheus text exposition format for a node_exporter textfile collector.
package prometheus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/calregs"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns the collectors of one command run.
type Metrics struct {
	gatherer prometheus.Gatherer

	fetches       *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	fetchDuration prometheus.Histogram
	events        *prometheus.CounterVec

	coveragePercent prometheus.Gauge
	sections        *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

// NewMetrics registers the collectors against a fresh registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calregs_fetches_total",
			Help: "Page fetches partitioned by result (ok or error type).",
		}, []string{"result"}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calregs_fetch_bytes_total",
			Help: "Bytes of HTML downloaded.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calregs_fetch_duration_seconds",
			Help:    "Fetch duration.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calregs_progress_events_total",
			Help: "Crawl progress events partitioned by command and event type.",
		}, []string{"command", "event"}),
		coveragePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "calregs_coverage_percent",
			Help: "Extracted share of discovered section URLs.",
		}),
		sections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calregs_sections",
			Help: "Section URL counts from the last coverage reconciliation.",
		}, []string{"state"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "calregs_last_run_timestamp_seconds",
			Help: "Unix time the metrics were last written.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		m.fetches,
		m.fetchBytes,
		m.fetchDuration,
		m.events,
		m.coveragePercent,
		m.sections,
		m.lastRun,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// ObserveEvent counts one progress event of a command.
func (m *Metrics) ObserveEvent(command, event string) {
	m.events.WithLabelValues(command, event).Inc()
}

// ObserveFetch records the outcome of one fetch.
func (m *Metrics) ObserveFetch(d time.Duration, bytes int, err error) {
	result := "ok"
	if err != nil {
		result = calregs.ErrorType(err)
	}
	m.fetches.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(d.Seconds())
	if bytes > 0 {
		m.fetchBytes.Add(float64(bytes))
	}
}

// SetCoverage publishes the counts of a coverage report.
func (m *Metrics) SetCoverage(r *calregs.CoverageReport) {
	m.coveragePercent.Set(r.CoveragePercent)
	m.sections.WithLabelValues("discovered").Set(float64(r.Discovered))
	m.sections.WithLabelValues("extracted").Set(float64(r.Extracted))
	m.sections.WithLabelValues("failed").Set(float64(r.Failed))
	m.sections.WithLabelValues("missing").Set(float64(r.Missing))
}

// WriteTextfile atomically writes every metric to path.
func (m *Metrics) WriteTextfile(path string, now time.Time) error {
	m.lastRun.Set(float64(now.Unix()))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.gatherer)
}

// Gatherer returns the registry holding the collectors.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

var _ calregs.Fetcher = (*Fetcher)(nil)

// Fetcher records every fetch of the wrapped fetcher.
type Fetcher struct {
	next    calregs.Fetcher
	metrics *Metrics
}

// NewFetcher wraps next with fetch metrics.
func NewFetcher(next calregs.Fetcher, m *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: m}
}

// Fetch delegates to the wrapped fetcher.
func (f *Fetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.metrics.ObserveFetch(time.Since(begin), len(html), err)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *Fetcher) Close() error {
	return f.next.Close()
}
