// Package jobrunner ties the catalog, worker pool, and separation engine
// together into a Submit/Handle API, buffering any pool events that race
// ahead of a job's id-to-context mapping.
package jobrunner

import (
	"path/filepath"
	"strings"
	"sync"

	"stemsmith/internal/catalog"
	"stemsmith/internal/domain"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/workerpool"
)

// Observer is notified of every lifecycle event for one job.
type Observer func(descriptor jobmodel.Descriptor, event workerpool.Event)

// Result is the terminal outcome of a submitted job.
type Result struct {
	InputPath string
	OutputDir string
	Status    domain.JobStatus
	Error     string
}

// Runner coordinates submission, routes pool events back to the right job
// context, and fulfills each job's Handle exactly once.
type Runner struct {
	catalog    *catalog.Catalog
	pool       *workerpool.Pool
	outputRoot string

	globalObserver Observer

	mu             sync.Mutex
	contextsByPath map[string]*jobContext
	pathsByID      map[int64]string
	pendingEvents  map[int64][]workerpool.Event
}

type jobContext struct {
	mu         sync.Mutex
	jobID      int64
	descriptor jobmodel.Descriptor
	observer   Observer

	once   sync.Once
	done   chan struct{}
	result Result
}

// New builds a Runner. processor performs the actual separation work, and
// workerCount controls how many jobs run concurrently.
func New(baseCatalog *catalog.Catalog, outputRoot string, workerCount int, processor workerpool.Processor, globalObserver Observer) *Runner {
	r := &Runner{
		catalog:        baseCatalog,
		outputRoot:     outputRoot,
		globalObserver: globalObserver,
		contextsByPath: make(map[string]*jobContext),
		pathsByID:      make(map[int64]string),
		pendingEvents:  make(map[int64][]workerpool.Event),
	}
	r.pool = workerpool.New(workerCount, processor, r.handleEvent)
	return r
}

// Submit validates and enqueues a job for path, returning a Handle used to
// observe progress, wait for the result, or cancel it. observer, if
// non-nil, is installed before the job is enqueued so it never misses the
// initial Queued event.
func (r *Runner) Submit(path string, overrides jobmodel.Overrides, observer Observer) (*Handle, error) {
	outputDir := filepath.Join(r.outputRoot, stemName(path))

	descriptor, err := r.catalog.Add(path, overrides, outputDir)
	if err != nil {
		return nil, err
	}

	jctx := &jobContext{descriptor: descriptor, done: make(chan struct{}), observer: observer}

	r.mu.Lock()
	r.contextsByPath[descriptor.InputPath] = jctx
	r.mu.Unlock()

	id, err := r.pool.Enqueue(descriptor)
	if err != nil {
		r.mu.Lock()
		delete(r.contextsByPath, descriptor.InputPath)
		r.mu.Unlock()
		r.catalog.Release(descriptor.InputPath)
		return nil, err
	}

	jctx.jobID = id

	r.mu.Lock()
	r.pathsByID[id] = descriptor.InputPath
	pending := r.pendingEvents[id]
	delete(r.pendingEvents, id)
	r.mu.Unlock()

	for _, e := range pending {
		r.handleEvent(e)
	}

	return &Handle{runner: r, ctx: jctx}, nil
}

// Shutdown stops accepting new jobs, cancels queued jobs, requests
// cancellation of running ones, and waits for every worker to exit.
func (r *Runner) Shutdown() {
	r.pool.Shutdown()
}

// handleEvent routes one pool event to its job context, buffering it if
// the id-to-path mapping has not been installed yet (Enqueue's caller
// hasn't returned to record it under lock).
func (r *Runner) handleEvent(event workerpool.Event) {
	r.mu.Lock()
	path, ok := r.pathsByID[event.ID]
	if !ok {
		r.pendingEvents[event.ID] = append(r.pendingEvents[event.ID], event)
		r.mu.Unlock()
		return
	}

	jctx := r.contextsByPath[path]
	terminal := event.Status.IsTerminal()
	if terminal {
		delete(r.pathsByID, event.ID)
		delete(r.contextsByPath, path)
	}
	r.mu.Unlock()

	if jctx == nil {
		return
	}

	notify(r.globalObserver, jctx.descriptor, event)

	jctx.mu.Lock()
	observer := jctx.observer
	jctx.mu.Unlock()
	notify(observer, jctx.descriptor, event)

	if !terminal {
		return
	}

	r.catalog.Release(path)

	result := Result{
		InputPath: jctx.descriptor.InputPath,
		OutputDir: event.OutputDir,
		Status:    event.Status,
		Error:     event.Error,
	}
	jctx.once.Do(func() {
		jctx.result = result
		close(jctx.done)
	})
}

// notify invokes an observer, recovering and discarding any panic so a
// misbehaving callback cannot take down a worker goroutine.
func notify(observer Observer, descriptor jobmodel.Descriptor, event workerpool.Event) {
	if observer == nil {
		return
	}
	defer func() { _ = recover() }()
	observer(descriptor, event)
}

// stemName mirrors job_output_directory: the input filename without its
// extension.
func stemName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
