// Package eventstore journals run events in SQLite and projects them into a
// run history.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const runStatusRunning = "running"

// RunSummary is a read model summarizing a run.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"` // running|success|partial|failed
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    time.Duration
	Documents   int      `json:"documents"`
	Exported    int      `json:"exported"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from journaled events.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // newest first
	maxSize int
}

// NewRunHistoryProjection creates a new projection backed by the given store.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 20
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	return nil
}

// Apply processes a single event and updates the projection.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{
			RunID:     runID,
			Status:    runStatusRunning,
			StartedAt: event.Timestamp(),
		}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeRunStarted:
		var meta RunStartedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil {
			summary.Mode = meta.Mode
			summary.Documents = meta.Documents
		}
		summary.StartedAt = event.Timestamp()

	case TypeDocumentExported:
		summary.Exported++

	case TypeDocumentFailed:
		summary.Failed++
		var meta DocumentFailedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil && meta.Path != "" {
			summary.FailedPaths = append(summary.FailedPaths, meta.Path)
		}

	case TypeRunCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		var meta RunCompletedMeta
		if err := json.Unmarshal(event.Payload(), &meta); err == nil && meta.Status != "" {
			summary.Status = meta.Status
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *RunHistoryProjection) addToHistoryLocked(summary *RunSummary) {
	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}

	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, s := range p.runs {
		if s.Status == runStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// History returns completed runs, newest first.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]RunSummary, len(p.history))
	for i, h := range p.history {
		result[i] = *h
	}
	return result
}

// Run returns the summary for a specific run.
func (p *RunHistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.runs[runID]
	if !exists {
		return RunSummary{}, false
	}
	return *summary, true
}
