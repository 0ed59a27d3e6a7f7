// Package watch keeps an output tree current while sources change.
//
// Filesystem events are debounced into batches. A single goroutine applies
// each batch: deleted documents are removed from the engine and the output
// tree, then changed documents, the documents that include or lay out a
// changed file, and documents that failed earlier are rebuilt through the
// build runner. Periodic full resyncs run on the same goroutine.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mdsite/internal/build"
	"git.home.luguber.info/inful/mdsite/internal/discovery"
	"git.home.luguber.info/inful/mdsite/internal/engine"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
)

const defaultDebounce = 150 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce       time.Duration
	ResyncInterval time.Duration // zero disables resync
	Discovery      discovery.Options
	Recorder       metrics.Recorder
	Logger         *slog.Logger
	// OnBatch is called after every applied batch or resync. Tests use it.
	OnBatch func(*build.Result)
}

// Watcher rebuilds documents as their sources change.
type Watcher struct {
	runner   *build.Runner
	engine   *engine.Engine
	root     string
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder

	fs      *fsnotify.Watcher
	pending pending
	failed  map[string]struct{}
	resync  chan struct{}
	ready   chan struct{}
}

// New creates a watcher driving runner.
func New(runner *build.Runner, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	eng := runner.Engine()
	return &Watcher{
		runner:   runner,
		engine:   eng,
		root:     eng.Mapper().SourceRoot,
		opts:     opts,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		pending:  make(pending),
		failed:   make(map[string]struct{}),
		resync:   make(chan struct{}, 1),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the initial build finished and the tree is watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run performs an initial build and then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	w.fs = fsw

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	res, err := w.runner.Run(ctx, build.Request{Mode: build.ModeWatch})
	if err != nil {
		return err
	}
	w.remember(res)
	w.notify(res)

	if w.opts.ResyncInterval > 0 {
		sched, err := newResyncScheduler(w.opts.ResyncInterval, w.requestResync, w.logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	close(w.ready)
	w.logger.Info("Watching for changes", logfields.Path(w.root), logfields.Duration(w.opts.Debounce))
	return w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.accept(ev) {
				continue
			}
			w.recorder.IncWatchEvent(opName(ev.Op))
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			w.pending.add(ev)
			stopTimer(timer)
			timer.Reset(w.opts.Debounce)
			timerC = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))

		case <-timerC:
			timerC = nil
			w.apply(ctx, w.pending.drain())

		case <-w.resync:
			w.runResync(ctx)
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (w *Watcher) accept(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod || isNoise(ev.Name) {
		return false
	}
	if !w.engine.Mapper().Contains(ev.Name) {
		return false
	}
	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		return true
	}
	return !discovery.Ignored(w.root, ev.Name, w.opts.Discovery)
}

// apply handles one debounced batch.
func (w *Watcher) apply(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	mapper := w.engine.Mapper()
	rebuild := make(map[string]struct{})

	for _, c := range changes {
		info, statErr := os.Stat(c.Path)
		if c.Kind == Changed && statErr == nil && info.IsDir() {
			// New directory: watch it and pick up files created before the watch was added.
			_ = w.addRecursive(c.Path)
			for _, p := range w.sourcesUnder(c.Path) {
				rebuild[p] = struct{}{}
			}
			continue
		}

		for _, dep := range w.engine.Dependents(c.Path) {
			rebuild[dep] = struct{}{}
		}

		if c.Kind == Removed || statErr != nil {
			delete(rebuild, c.Path)
			delete(w.failed, c.Path)
			if err := w.engine.Remove(c.Path); err != nil {
				w.logger.Warn("Failed to remove output", logfields.Path(c.Path), logfields.Error(err))
			}
			continue
		}

		if mapper.IsSource(c.Path) {
			rebuild[c.Path] = struct{}{}
		} else {
			w.refreshAsset(c.Path)
		}
	}

	for p := range w.failed {
		rebuild[p] = struct{}{}
	}

	sources := make([]string, 0, len(rebuild))
	for p := range rebuild {
		if w.opts.Discovery.SkipPartials && discovery.IsPartial(p) {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			delete(w.failed, p)
			continue
		}
		sources = append(sources, p)
	}
	sort.Strings(sources)
	if len(sources) == 0 {
		return
	}

	res, err := w.runner.Run(ctx, build.Request{Mode: build.ModeWatch, Sources: sources, KeepOutput: true})
	if err != nil {
		w.logger.Error("Rebuild failed", logfields.Error(err))
		return
	}
	w.remember(res)
	w.notify(res)
}

// refreshAsset recopies an asset that an exported document already links to.
func (w *Watcher) refreshAsset(path string) {
	out, err := w.engine.Mapper().ToOutput(path)
	if err != nil {
		return
	}
	if _, err := os.Stat(out); err != nil {
		return
	}
	if err := w.engine.CopyAsset(path); err != nil {
		w.logger.Warn("Failed to refresh asset", logfields.Path(path), logfields.Error(err))
	}
}

func (w *Watcher) runResync(ctx context.Context) {
	res, err := w.runner.Run(ctx, build.Request{Mode: build.ModeResync, KeepOutput: true})
	if err != nil {
		w.logger.Error("Resync failed", logfields.Error(err))
		return
	}
	w.failed = make(map[string]struct{})
	w.remember(res)
	w.notify(res)
}

func (w *Watcher) requestResync() {
	select {
	case w.resync <- struct{}{}:
	default:
	}
}

// remember tracks failed documents so later batches retry them.
func (w *Watcher) remember(res *build.Result) {
	for _, d := range res.Documents {
		if d.Err != nil {
			w.failed[d.Path] = struct{}{}
		} else {
			delete(w.failed, d.Path)
		}
	}
}

func (w *Watcher) notify(res *build.Result) {
	if w.opts.OnBatch != nil {
		w.opts.OnBatch(res)
	}
}

func (w *Watcher) sourcesUnder(dir string) []string {
	opts := w.opts.Discovery
	opts.SkipPartials = false
	files, err := discovery.Walk(dir, opts)
	if err != nil {
		return nil
	}
	var out []string
	for _, f := range files {
		if !discovery.Ignored(w.root, f, w.opts.Discovery) {
			out = append(out, f)
		}
	}
	return out
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (isNoise(path) || discovery.Ignored(w.root, path, w.opts.Discovery)) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}
