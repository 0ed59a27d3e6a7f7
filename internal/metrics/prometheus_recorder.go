package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdsite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	processDuration prom.Histogram
	processResults  *prom.CounterVec
	exportResults   *prom.CounterVec
	runDuration     *prom.HistogramVec
	runOutcome      *prom.CounterVec
	cacheEntries    prom.Gauge
	watchEvents     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.processDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Duration of single document processing attempts",
			Buckets:   prom.DefBuckets,
		})
		pr.processResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "process_results_total",
			Help:      "Document processing attempts by outcome",
		}, []string{"result"})
		pr.exportResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "export_results_total",
			Help:      "Document exports by success/failure",
		}, []string{"result"})
		pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of batch runs and watch rebuilds",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by mode and final status",
		}, []string{"mode", "outcome"})
		pr.cacheEntries = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of processed documents held in the cache",
		})
		pr.watchEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File system events handled in watch mode by operation",
		}, []string{"op"})
		reg.MustRegister(pr.processDuration, pr.processResults, pr.exportResults,
			pr.runDuration, pr.runOutcome, pr.cacheEntries, pr.watchEvents)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveProcessDuration(d time.Duration) {
	if p == nil || p.processDuration == nil {
		return
	}
	p.processDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncProcessResult(result ResultLabel) {
	if p == nil || p.processResults == nil {
		return
	}
	p.processResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncExportResult(success bool) {
	if p == nil || p.exportResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.exportResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(mode string, d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(mode, outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(mode, outcome).Inc()
}

func (p *PrometheusRecorder) SetCacheEntries(n int) {
	if p == nil || p.cacheEntries == nil {
		return
	}
	p.cacheEntries.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchEvent(op string) {
	if p == nil || p.watchEvents == nil {
		return
	}
	p.watchEvents.WithLabelValues(op).Inc()
}
