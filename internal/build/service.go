package build

import (
	"context"
	"time"
)

// Service executes builds. Runner is the only implementation; the CLI
// depends on the interface so tests can substitute it.
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Mode labels a run in events and metrics.
type Mode string

const (
	ModeBuild  Mode = "build"
	ModeWatch  Mode = "watch"
	ModeResync Mode = "resync"
)

// Request describes one run.
type Request struct {
	Mode Mode
	// Sources overrides discovery when non-nil.
	Sources []string
	// KeepOutput skips resetting the output tree. Watch resyncs set it.
	KeepOutput bool
}

// Status is the overall outcome of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether every document was exported.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// Stage names where a document failed.
const (
	StageProcess = "process"
	StageExport  = "export"
)

// DocumentResult is the outcome for one source path.
type DocumentResult struct {
	Path     string
	Hash     string
	Output   string
	Exported bool
	Stage    string // empty on success
	Err      error
}

// Result is the outcome of a run. Documents follows the order of the
// discovered (or requested) sources.
type Result struct {
	RunID     string
	Mode      Mode
	Status    Status
	Documents []DocumentResult
	Exported  int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Failures returns the failed documents.
func (r *Result) Failures() []DocumentResult {
	var out []DocumentResult
	for _, d := range r.Documents {
		if d.Err != nil {
			out = append(out, d)
		}
	}
	return out
}

func statusFor(exported, failed int) Status {
	switch {
	case failed == 0:
		return StatusSuccess
	case exported == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
