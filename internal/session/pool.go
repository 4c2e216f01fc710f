package session

import (
	"sync"

	"stemsmith/internal/errs"
	"stemsmith/internal/profile"
)

// Factory constructs a fresh Session for a profile on a cache miss.
type Factory func(id profile.ID) (*Session, error)

// Pool recycles loaded sessions, keyed by profile, so repeated jobs against
// the same profile avoid re-loading weights.
type Pool struct {
	factory Factory

	mu      sync.Mutex
	buckets map[profile.ID][]*Session
}

// NewPool builds a pool that constructs sessions via factory on demand.
func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory, buckets: make(map[profile.ID][]*Session)}
}

// Handle is a borrowed Session that must be released back to its pool.
// Go has no destructors, so callers are expected to `defer handle.Release()`.
type Handle struct {
	pool    *Pool
	profile profile.ID
	session *Session
}

// Session returns the borrowed session.
func (h *Handle) Session() *Session {
	return h.session
}

// Release returns the session to the pool's idle bucket for its profile.
func (h *Handle) Release() {
	if h == nil || h.session == nil {
		return
	}
	h.pool.recycle(h.profile, h.session)
	h.session = nil
}

// Acquire borrows a session for id, either recycling an idle one or
// building a new one via the pool's factory.
func (p *Pool) Acquire(id profile.ID) (*Handle, error) {
	p.mu.Lock()
	bucket := p.buckets[id]
	if len(bucket) > 0 {
		s := bucket[len(bucket)-1]
		p.buckets[id] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		return &Handle{pool: p, profile: id, session: s}, nil
	}
	p.mu.Unlock()

	if p.factory == nil {
		return nil, errs.New(errs.ConfigurationError, "session pool has no factory configured")
	}

	s, err := p.factory(id)
	if err != nil {
		return nil, err
	}
	return &Handle{pool: p, profile: id, session: s}, nil
}

// recycle pushes a session back onto its profile's idle bucket.
func (p *Pool) recycle(id profile.ID, s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets[id] = append(p.buckets[id], s)
}
