// Package service is the top-level facade wiring the model cache, session
// pool, separation engine, and job runner into the single entry point used
// by both the HTTP API and the CLI.
package service

import (
	"context"
	"os"
	"runtime"

	"stemsmith/internal/audioio"
	"stemsmith/internal/catalog"
	"stemsmith/internal/errs"
	"stemsmith/internal/fetcher"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/jobrunner"
	"stemsmith/internal/manifest"
	"stemsmith/internal/modelcache"
	"stemsmith/internal/profile"
	"stemsmith/internal/resample"
	"stemsmith/internal/separation"
	"stemsmith/internal/session"
)

// CacheConfig configures where weights are stored and how they are
// fetched.
type CacheConfig struct {
	Root     string
	Fetcher  fetcher.WeightFetcher
	Manifest *manifest.Manifest
	Progress modelcache.ProgressFunc
}

// RuntimeConfig wires every injectable dependency the service needs.
type RuntimeConfig struct {
	Cache       CacheConfig
	OutputRoot  string
	WorkerCount int
	OnJobEvent  jobrunner.Observer

	Loader     audioio.Loader
	Writer     audioio.Writer
	ModelLoad  session.LoaderFunc
	ModelInfer session.InferenceFunc
	Resampler  separation.Resampler
}

// Request describes one submission from a caller.
type Request struct {
	InputPath string
	Profile   *profile.ID
	Stems     []string
	Observer  jobrunner.Observer
}

// Service is the facade used by the HTTP and CLI surfaces.
type Service struct {
	cache  *modelcache.Cache
	runner *jobrunner.Runner
}

// Create builds a fully wired service. defaults.Profile (if set) becomes
// the base profile used when a submission does not override it.
func Create(cfg RuntimeConfig, defaults jobmodel.Overrides) (*Service, error) {
	if cfg.Cache.Root == "" {
		return nil, errs.New(errs.ConfigurationError, "cache root must not be empty")
	}
	if cfg.OutputRoot == "" {
		return nil, errs.New(errs.ConfigurationError, "output root must not be empty")
	}
	if err := os.MkdirAll(cfg.Cache.Root, 0o755); err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, "create cache root", err)
	}
	if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, "create output root", err)
	}

	m := cfg.Cache.Manifest
	if m == nil {
		m = manifest.LoadDefault()
	}

	f := cfg.Cache.Fetcher
	if f == nil {
		f = fetcher.NewHTTPFetcher()
	}

	cache := modelcache.New(cfg.Cache.Root, m, f, cfg.Cache.Progress)

	baseProfile := profile.Default
	if defaults.Profile != nil {
		baseProfile = *defaults.Profile
	}

	resampler := cfg.Resampler
	if resampler == nil {
		resampler = resample.New()
	}

	sessions := session.NewPool(session.CacheBackedFactory(cache, cfg.ModelLoad, cfg.ModelInfer))
	engine := &separation.Engine{
		Loader:    cfg.Loader,
		Writer:    cfg.Writer,
		Sessions:  sessions,
		Resampler: resampler,
	}

	cat := catalog.New(baseProfile, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})

	workerCount := cfg.WorkerCount
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if workerCount < 1 {
		workerCount = 1
	}

	runner := jobrunner.New(cat, cfg.OutputRoot, workerCount, engine.Process, cfg.OnJobEvent)

	return &Service{cache: cache, runner: runner}, nil
}

// Submit enqueues a separation job for req.InputPath.
func (s *Service) Submit(req Request) (*jobrunner.Handle, error) {
	overrides := jobmodel.Overrides{Profile: req.Profile, StemsFilter: req.Stems}
	return s.runner.Submit(req.InputPath, overrides, req.Observer)
}

// EnsureModelReady downloads and verifies a profile's weights if needed,
// returning once they are ready for use.
func (s *Service) EnsureModelReady(ctx context.Context, id profile.ID) (modelcache.Handle, error) {
	return s.cache.EnsureReady(ctx, id)
}

// PurgeModels removes cached weights for one profile, or every profile
// when id is nil.
func (s *Service) PurgeModels(id *profile.ID) error {
	if id == nil {
		return s.cache.PurgeAll()
	}
	return s.cache.Purge(*id)
}

// ListModels reports cache status for every known profile.
func (s *Service) ListModels() []modelcache.Status {
	return s.cache.List()
}

// Shutdown stops accepting new jobs, cancels queued jobs, requests
// cancellation of running ones, and waits for every worker to exit.
func (s *Service) Shutdown() {
	s.runner.Shutdown()
}
