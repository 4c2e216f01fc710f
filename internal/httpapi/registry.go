package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"stemsmith/internal/domain"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/jobrunner"
	"stemsmith/internal/jobs"
	"stemsmith/internal/workerpool"
)

// entry is the HTTP-facing record for one submitted job, keyed by an
// opaque id distinct from the worker pool's own integer job id. It is
// constructed before the job is submitted so entry.apply can be handed to
// the runner as the job's observer and never misses the initial Queued
// event.
type entry struct {
	id string

	bus *jobs.EventBus

	mu         sync.RWMutex
	handle     *jobrunner.Handle
	descriptor jobmodel.Descriptor
	status     domain.JobStatus
	progress   float64
	message    string
	errMessage string
	outputDir  string
}

func newEntry(id string) *entry {
	return &entry{
		id:       id,
		bus:      jobs.NewEventBus(500),
		status:   domain.JobStatusQueued,
		progress: -1,
	}
}

// attach records the handle returned by a successful submission.
func (e *entry) attach(handle *jobrunner.Handle) {
	e.mu.Lock()
	e.handle = handle
	e.descriptor = handle.Descriptor()
	e.mu.Unlock()
}

// apply is installed as the job's Observer before submission, so it sees
// every event from Queued onward.
func (e *entry) apply(descriptor jobmodel.Descriptor, event workerpool.Event) {
	e.mu.Lock()
	e.descriptor = descriptor
	e.status = event.Status
	e.progress = event.Progress
	e.message = event.Message
	e.errMessage = event.Error
	if event.OutputDir != "" {
		e.outputDir = event.OutputDir
	}
	e.mu.Unlock()

	e.bus.Publish(jobs.Event{
		JobID:    e.id,
		Status:   event.Status,
		Progress: event.Progress,
		Message:  event.Message,
		Error:    event.Error,
	})
}

func (e *entry) snapshot() (descriptor jobmodel.Descriptor, status domain.JobStatus, progress float64, message, errMessage, outputDir string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.descriptor, e.status, e.progress, e.message, e.errMessage, e.outputDir
}

func (e *entry) cancel(reason string) bool {
	e.mu.RLock()
	h := e.handle
	e.mu.RUnlock()
	if h == nil {
		return false
	}
	return h.Cancel(reason)
}

// registry maps opaque external job ids to their entry, mirroring the
// job_registry pattern from the reference HTTP server: the external id is
// assigned independently of the pool's own integer id.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry)}
}

// newID allocates an opaque job id without registering anything yet.
func (r *registry) newID() string {
	return uuid.NewString()
}

// put registers e under id. Called once a submission has succeeded.
func (r *registry) put(id string, e *entry) {
	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
}

func (r *registry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}
