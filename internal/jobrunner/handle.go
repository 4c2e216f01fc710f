package jobrunner

import (
	"context"

	"stemsmith/internal/jobmodel"
)

// Handle is a caller's view of one submitted job.
type Handle struct {
	runner *Runner
	ctx    *jobContext
}

// ID returns the worker pool's integer job id.
func (h *Handle) ID() int64 {
	return h.ctx.jobID
}

// Descriptor returns the resolved job configuration.
func (h *Handle) Descriptor() jobmodel.Descriptor {
	return h.ctx.descriptor
}

// Result blocks until the job reaches a terminal state or ctx is done.
func (h *Handle) Result(ctx context.Context) (Result, error) {
	select {
	case <-h.ctx.done:
		return h.ctx.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Cancel requests cancellation, reporting whether this request moved the
// job to cancellation-requested. It returns false when the job has already
// finished or its cancellation was already requested.
func (h *Handle) Cancel(reason string) bool {
	return h.runner.pool.Cancel(h.ctx.jobID, reason)
}

// SetObserver installs (or replaces) the per-job event observer. Observer
// panics are recovered by the runner and discarded rather than killing a
// worker goroutine.
func (h *Handle) SetObserver(fn Observer) {
	h.ctx.mu.Lock()
	h.ctx.observer = fn
	h.ctx.mu.Unlock()
}
