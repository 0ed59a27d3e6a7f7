package metrics

import "time"

// ResultLabel enumerates per-document processing outcomes for counters.
type ResultLabel string

const (
	ResultProcessed ResultLabel = "processed"
	ResultCached    ResultLabel = "cached"
	ResultFailed    ResultLabel = "failed"
)

// Recorder defines observability hooks for document processing, export and
// runs. Implementations may forward to Prometheus; NoopRecorder is the
// default so components never need nil checks.
type Recorder interface {
	ObserveProcessDuration(d time.Duration)
	IncProcessResult(result ResultLabel)
	IncExportResult(success bool)
	ObserveRunDuration(mode string, d time.Duration)
	IncRunOutcome(mode, outcome string) // outcome: success|partial|failed
	SetCacheEntries(n int)
	IncWatchEvent(op string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveProcessDuration(time.Duration)     {}
func (NoopRecorder) IncProcessResult(ResultLabel)             {}
func (NoopRecorder) IncExportResult(bool)                     {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration) {}
func (NoopRecorder) IncRunOutcome(string, string)             {}
func (NoopRecorder) SetCacheEntries(int)                      {}
func (NoopRecorder) IncWatchEvent(string)                     {}
