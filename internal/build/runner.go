package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mdsite/internal/discovery"
	"git.home.luguber.info/inful/mdsite/internal/engine"
	"git.home.luguber.info/inful/mdsite/internal/events"
	"git.home.luguber.info/inful/mdsite/internal/eventstore"
	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
)

// Runner is the standard Service.
type Runner struct {
	engine    *engine.Engine
	discovery discovery.Options
	sink      events.Sink
	recorder  metrics.Recorder
	logger    *slog.Logger
	newRunID  func() string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithDiscovery(opts discovery.Options) RunnerOption {
	return func(r *Runner) { r.discovery = opts }
}

func WithSink(s events.Sink) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

func WithRecorder(rec metrics.Recorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunIDs replaces the uuid run id generator.
func WithRunIDs(f func() string) RunnerOption {
	return func(r *Runner) {
		if f != nil {
			r.newRunID = f
		}
	}
}

// NewRunner creates a Runner over eng.
func NewRunner(eng *engine.Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:    eng,
		discovery: discovery.Options{SourceExt: eng.Mapper().SourceExt, SkipPartials: true},
		sink:      events.Discard{},
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		newRunID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Run executes one batch run. It returns an error only when the run could not
// start (discovery or output preparation failed); per-document failures are
// reported in the Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Mode == "" {
		req.Mode = ModeBuild
	}
	res := &Result{RunID: r.newRunID(), Mode: req.Mode, StartTime: time.Now()}
	logger := r.logger.With(logfields.RunID(res.RunID), slog.String("mode", string(req.Mode)))

	sources := req.Sources
	if sources == nil {
		var err error
		sources, err = discovery.Walk(r.engine.Mapper().SourceRoot, r.discovery)
		if err != nil {
			r.abort(ctx, res, logger)
			return res, fmt.Errorf("%w: %w", ErrDiscovery, err)
		}
	}

	if !req.KeepOutput {
		if err := r.engine.PrepareOutput(sources); err != nil {
			r.abort(ctx, res, logger)
			return res, fmt.Errorf("%w: %w", ErrPrepareOutput, err)
		}
	}

	r.emit(ctx, logger, func() (eventstore.Event, error) {
		return eventstore.NewRunStarted(res.RunID, eventstore.RunStartedMeta{
			Mode:      string(req.Mode),
			Source:    r.engine.Mapper().SourceRoot,
			Output:    r.engine.Mapper().OutputRoot,
			Documents: len(sources),
		})
	})
	logger.Info("Run started", logfields.Count(len(sources)))

	res.Documents = make([]DocumentResult, len(sources))
	for i, path := range sources {
		res.Documents[i].Path = path
	}
	var processed []int
	var fps []fingerprint.Footprint
	for i, path := range sources {
		if ctx.Err() != nil {
			res.Status = StatusCancelled
			break
		}
		fp, err := r.engine.Process(path).ToTuple()
		if err != nil {
			r.fail(ctx, logger, res, i, StageProcess, err)
			continue
		}
		res.Documents[i].Hash = fp.Hash
		processed = append(processed, i)
		fps = append(fps, fp)
	}

	if res.Status != StatusCancelled {
		for j, ok := range r.engine.ExportAll(fps) {
			i := processed[j]
			if !ok {
				r.fail(ctx, logger, res, i, StageExport, errors.InternalError("export failed").
					WithContext("path", res.Documents[i].Path).Build())
				continue
			}
			r.exported(ctx, logger, res, i)
		}
		res.Status = statusFor(res.Exported, res.Failed)
	}

	r.finish(ctx, res, logger)
	return res, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, res *Result, i int, stage string, err error) {
	doc := &res.Documents[i]
	doc.Stage = stage
	doc.Err = err
	res.Failed++
	r.emit(ctx, logger, func() (eventstore.Event, error) {
		return eventstore.NewDocumentFailed(res.RunID, eventstore.DocumentFailedMeta{
			Path:     doc.Path,
			Stage:    stage,
			Category: string(errors.RootCategory(err)),
			Error:    err.Error(),
		})
	})
}

func (r *Runner) exported(ctx context.Context, logger *slog.Logger, res *Result, i int) {
	doc := &res.Documents[i]
	doc.Exported = true
	if out, err := r.engine.Mapper().ToOutput(doc.Path); err == nil {
		doc.Output = out
	}
	res.Exported++
	r.emit(ctx, logger, func() (eventstore.Event, error) {
		return eventstore.NewDocumentExported(res.RunID, eventstore.DocumentExportedMeta{
			Path:   doc.Path,
			Hash:   doc.Hash,
			Output: doc.Output,
		})
	})
}

func (r *Runner) abort(ctx context.Context, res *Result, logger *slog.Logger) {
	res.Status = StatusFailed
	r.finish(ctx, res, logger)
}

func (r *Runner) finish(ctx context.Context, res *Result, logger *slog.Logger) {
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)

	r.recorder.ObserveRunDuration(string(res.Mode), res.Duration)
	r.recorder.IncRunOutcome(string(res.Mode), string(res.Status))
	r.recorder.SetCacheEntries(r.engine.Stats().CacheEntries)

	// The completion event is emitted even after cancellation.
	r.emit(context.WithoutCancel(ctx), logger, func() (eventstore.Event, error) {
		return eventstore.NewRunCompleted(res.RunID, eventstore.RunCompletedMeta{
			Status:     string(res.Status),
			Exported:   res.Exported,
			Failed:     res.Failed,
			DurationMS: res.Duration.Milliseconds(),
		})
	})

	level := slog.LevelInfo
	if res.Status != StatusSuccess {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "Run completed",
		slog.String("status", string(res.Status)),
		slog.Int("exported", res.Exported),
		slog.Int("failed", res.Failed),
		logfields.Duration(res.Duration))
}

// emit publishes an event. Sink failures are logged and never fail the run.
func (r *Runner) emit(ctx context.Context, logger *slog.Logger, build func() (eventstore.Event, error)) {
	event, err := build()
	if err == nil {
		err = r.sink.Emit(ctx, event)
	}
	if err != nil {
		logger.Warn("Failed to emit run event", logfields.Error(err))
	}
}
