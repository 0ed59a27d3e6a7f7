// Package engine is the incremental processing engine. It fingerprints
// documents, serves unchanged ones from its cache, runs the pipeline for the
// rest, detects circular include/layout chains and exports rendered output.
package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/directive"
	"git.home.luguber.info/inful/mdsite/internal/fingerprint"
	"git.home.luguber.info/inful/mdsite/internal/foundation"
	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/paths"
	"git.home.luguber.info/inful/mdsite/internal/pipeline"
	"git.home.luguber.info/inful/mdsite/internal/render"
)

// PipelineFactory builds the pipeline for an engine from the step environment.
type PipelineFactory func(env pipeline.Env) (*pipeline.Pipeline, error)

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithSteps selects built-in steps by name, in order.
func WithSteps(names ...string) Option {
	return func(e *Engine) {
		e.factory = func(env pipeline.Env) (*pipeline.Pipeline, error) {
			return pipeline.Build(env, names...)
		}
	}
}

// WithPipeline installs a custom pipeline factory.
func WithPipeline(factory PipelineFactory) Option {
	return func(e *Engine) {
		if factory != nil {
			e.factory = factory
		}
	}
}

// WithMemo enables memoisation of pure pipeline steps.
func WithMemo(m *pipeline.Memo) Option {
	return func(e *Engine) { e.memo = m }
}

// Stats is a snapshot of engine counters.
type Stats struct {
	CacheEntries  int
	InFlight      int
	Processed     int
	CacheHits     int
	Failed        int
	Exported      int
	ExportsFailed int
}

// Engine owns the processing cache and the in-flight set for one build
// session. Process and Export calls must be serialized by the caller; the
// mutex only guards the cache/in-flight bookkeeping so that reentrant
// resolution from inside a pipeline step never deadlocks and Stats can be
// read concurrently.
type Engine struct {
	computer fingerprint.Computer
	mapper   paths.Mapper
	renderer render.Renderer
	syntax   directive.Syntax
	factory  PipelineFactory
	pipeline *pipeline.Pipeline
	memo     *pipeline.Memo
	cache    *Cache
	recorder metrics.Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[fingerprint.Footprint]struct{}
	deps     []*[]fingerprint.Footprint
	stats    Stats
}

// New creates an engine. Without WithSteps or WithPipeline it runs the
// default pipeline.
func New(mapper paths.Mapper, renderer render.Renderer, opts ...Option) (*Engine, error) {
	e := &Engine{
		computer: fingerprint.NewComputer(mapper.SourceExt),
		mapper:   mapper,
		renderer: renderer,
		cache:    NewCache(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		inFlight: make(map[fingerprint.Footprint]struct{}),
		factory: func(env pipeline.Env) (*pipeline.Pipeline, error) {
			return pipeline.Default(env), nil
		},
	}
	e.syntax = directive.Syntax{SourceExt: e.computer.SourceExt}
	for _, opt := range opts {
		opt(e)
	}

	p, err := e.factory(pipeline.Env{
		Resolver: e,
		Copier:   e,
		Mapper:   mapper,
		Syntax:   e.syntax,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.WithLogger(e.logger)
	if e.memo != nil {
		p.WithMemo(e.memo)
	}
	e.pipeline = p

	e.logger.Debug("Engine ready", slog.Any("steps", p.Names()))
	return e, nil
}

// Mapper returns the output path mapper.
func (e *Engine) Mapper() paths.Mapper { return e.mapper }

// Process brings the document at path into the cache and returns its
// footprint. Failures (missing file, unsupported type, cycles, step errors)
// are logged with the offending path and returned as an Err result.
func (e *Engine) Process(path string) foundation.Result[fingerprint.Footprint, error] {
	start := time.Now()
	fp, _, err := e.process(path)
	e.recorder.ObserveProcessDuration(time.Since(start))
	if err != nil {
		e.countFailure()
		e.logger.Error("Document processing failed",
			logfields.Path(path),
			logfields.Category(string(errors.RootCategory(err))),
			logfields.Error(err))
		return foundation.Err[fingerprint.Footprint, error](err)
	}
	return foundation.Ok[fingerprint.Footprint, error](fp)
}

// ProcessAll processes every path independently and returns the footprints
// of those that succeeded, in input order without duplicates.
func (e *Engine) ProcessAll(paths []string) []fingerprint.Footprint {
	out := make([]fingerprint.Footprint, 0, len(paths))
	seen := make(map[fingerprint.Footprint]struct{}, len(paths))
	for _, p := range paths {
		fp, err := e.Process(p).ToTuple()
		if err != nil {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, fp)
	}
	return out
}

// Resolve returns the processed form of the document at path, processing it
// first when needed. Include and layout steps call it re-entrantly.
func (e *Engine) Resolve(path string) (*pipeline.Document, error) {
	_, doc, err := e.process(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Engine) process(path string) (fingerprint.Footprint, *pipeline.Document, error) {
	path = filepath.Clean(path)

	fp, raw, err := e.computer.Read(path)
	if err != nil {
		return fingerprint.Footprint{}, nil, err
	}

	if entry, ok := e.lookup(fp); ok {
		e.recordDep(fp)
		e.countHit()
		e.logger.Debug("Cache hit", logfields.Path(path), logfields.Hash(fp.Hash))
		return fp, entry.Document, nil
	}

	doc, deps, err := e.run(fp, raw)
	if err != nil {
		return fingerprint.Footprint{}, nil, err
	}

	e.cache.Put(fp, Entry{Document: doc, Deps: deps})
	e.recordDep(fp)
	e.countProcessed()
	e.logger.Debug("Document processed",
		logfields.Path(path),
		logfields.Hash(fp.Hash),
		logfields.Count(len(deps)))
	return fp, doc, nil
}

// run executes the pipeline for fp while it is marked in flight. The marker
// and the dependency collector are released on every exit path.
func (e *Engine) run(fp fingerprint.Footprint, raw []byte) (doc *pipeline.Document, deps []fingerprint.Footprint, err error) {
	if err := e.enter(fp); err != nil {
		return nil, nil, err
	}
	defer func() {
		deps = e.leave(fp)
	}()

	doc, err = e.pipeline.Run(pipeline.NewDocument(fp.Path, raw))
	if err != nil {
		return nil, nil, fmt.Errorf("process %s: %w", fp.Path, err)
	}
	return doc, nil, nil
}

func (e *Engine) enter(fp fingerprint.Footprint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[fp]; busy {
		return errors.CyclicReference(fp.Path)
	}
	e.inFlight[fp] = struct{}{}
	collected := make([]fingerprint.Footprint, 0)
	e.deps = append(e.deps, &collected)
	return nil
}

func (e *Engine) leave(fp fingerprint.Footprint) []fingerprint.Footprint {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, fp)
	top := e.deps[len(e.deps)-1]
	e.deps = e.deps[:len(e.deps)-1]
	return *top
}

// recordDep notes fp as a dependency of the document currently running its
// pipeline, if any.
func (e *Engine) recordDep(fp fingerprint.Footprint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.deps) == 0 {
		return
	}
	top := e.deps[len(e.deps)-1]
	for _, d := range *top {
		if d == fp {
			return
		}
	}
	*top = append(*top, fp)
}

// lookup returns the cached entry for fp when it and every document it
// resolved are unchanged on disk.
func (e *Engine) lookup(fp fingerprint.Footprint) (Entry, bool) {
	entry, ok := e.cache.Get(fp)
	if !ok {
		return Entry{}, false
	}
	if !e.fresh(entry, map[fingerprint.Footprint]struct{}{fp: {}}) {
		e.logger.Debug("Cached document has changed dependencies", logfields.Path(fp.Path))
		return Entry{}, false
	}
	return entry, true
}

func (e *Engine) fresh(entry Entry, visited map[fingerprint.Footprint]struct{}) bool {
	for _, dep := range entry.Deps {
		if _, seen := visited[dep]; seen {
			continue
		}
		visited[dep] = struct{}{}

		current, err := e.computer.Compute(dep.Path)
		if err != nil || current != dep {
			return false
		}
		depEntry, ok := e.cache.Get(dep)
		if !ok || !e.fresh(depEntry, visited) {
			return false
		}
	}
	return true
}

// InFlight reports how many documents are currently being processed.
func (e *Engine) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inFlight)
}

// Cached returns the cache entry for fp.
func (e *Engine) Cached(fp fingerprint.Footprint) (Entry, bool) {
	return e.cache.Get(fp)
}

// Dependents returns cached documents that include or lay out path, directly
// or transitively.
func (e *Engine) Dependents(path string) []string {
	return e.cache.Dependents(filepath.Clean(path))
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.CacheEntries = e.cache.Len()
	s.InFlight = len(e.inFlight)
	return s
}

func (e *Engine) countHit() {
	e.mu.Lock()
	e.stats.CacheHits++
	e.mu.Unlock()
	e.recorder.IncProcessResult(metrics.ResultCached)
}

func (e *Engine) countProcessed() {
	e.mu.Lock()
	e.stats.Processed++
	e.mu.Unlock()
	e.recorder.IncProcessResult(metrics.ResultProcessed)
	e.recorder.SetCacheEntries(e.cache.Len())
}

func (e *Engine) countFailure() {
	e.mu.Lock()
	e.stats.Failed++
	e.mu.Unlock()
	e.recorder.IncProcessResult(metrics.ResultFailed)
}
