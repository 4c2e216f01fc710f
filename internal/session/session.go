// Package session implements the in-process separation model: loading
// weights, running inference, and pooling loaded sessions for reuse across
// jobs targeting the same profile.
package session

import (
	"fmt"

	"stemsmith/internal/audioio"
	"stemsmith/internal/errs"
	"stemsmith/internal/profile"
)

// Result holds one stem name to decoded-audio pair per separated track.
type Result struct {
	Stems map[string]audioio.Buffer
}

// WeightResolver resolves the filesystem path to a profile's weight file,
// triggering a cache download if necessary.
type WeightResolver func() (string, error)

// LoaderFunc loads weights from path into session-local model state. The
// neural network implementation itself is out of scope for this
// repository; production wiring supplies a concrete loader.
type LoaderFunc func(weightsPath string) error

// ProgressFunc reports fractional inference progress, in [0, 1].
type ProgressFunc func(fraction float64)

// InferenceFunc runs separation over buf, restricted to stemFilter when
// non-empty, reporting progress as it proceeds.
type InferenceFunc func(buf audioio.Buffer, stemFilter []string, progress ProgressFunc) (Result, error)

// Session wraps one loaded separation model for a single profile.
type Session struct {
	Profile profile.Profile

	resolveWeights WeightResolver
	load           LoaderFunc
	infer          InferenceFunc

	loaded bool
}

// New builds a session with explicit hooks, primarily for tests and for
// wiring a concrete inference backend.
func New(p profile.Profile, resolveWeights WeightResolver, load LoaderFunc, infer InferenceFunc) *Session {
	return &Session{Profile: p, resolveWeights: resolveWeights, load: load, infer: infer}
}

// ensureLoaded resolves and loads weights exactly once per session.
func (s *Session) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	if s.resolveWeights == nil || s.load == nil {
		return errs.New(errs.ConfigurationError, "session has no weight resolver or loader configured")
	}

	path, err := s.resolveWeights()
	if err != nil {
		return err
	}
	if err := s.load(path); err != nil {
		return errs.Wrap(errs.ProcessingError, "load model weights", err)
	}

	s.loaded = true
	return nil
}

// Separate runs inference on buf, restricted to stemFilter when non-empty.
// An empty filter produces every stem the profile defines.
func (s *Session) Separate(buf audioio.Buffer, stemFilter []string, progress ProgressFunc) (Result, error) {
	if err := s.ensureLoaded(); err != nil {
		return Result{}, err
	}
	if s.infer == nil {
		return Result{}, errs.New(errs.ConfigurationError, "session has no inference function configured")
	}

	for _, stem := range stemFilter {
		if !s.Profile.HasStem(stem) {
			return Result{}, errs.New(errs.InvalidInput, fmt.Sprintf("profile %q does not produce stem %q", s.Profile.Key, stem))
		}
	}

	return s.infer(buf, stemFilter, progress)
}
