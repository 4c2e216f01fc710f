// Package catalog tracks which input files are currently enqueued,
// preventing the same file from being submitted twice concurrently and
// resolving per-job overrides against a base profile.
package catalog

import (
	"fmt"
	"path/filepath"
	"sync"

	"stemsmith/internal/errs"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/profile"
)

// ExistsFunc reports whether a path exists on disk, injected for testing.
type ExistsFunc func(path string) bool

// Catalog deduplicates in-flight input paths and resolves job overrides.
type Catalog struct {
	baseProfile profile.ID
	exists      ExistsFunc

	mu   sync.Mutex
	seen map[string]struct{}
}

// New builds a catalog with a base profile used when a job does not
// override it.
func New(baseProfile profile.ID, exists ExistsFunc) *Catalog {
	if exists == nil {
		exists = func(string) bool { return true }
	}
	return &Catalog{baseProfile: baseProfile, exists: exists, seen: make(map[string]struct{})}
}

// Add normalizes path, validates it, applies overrides against the base
// profile, and marks the path as in-flight until Release is called.
func (c *Catalog) Add(path string, overrides jobmodel.Overrides, outputDir string) (jobmodel.Descriptor, error) {
	if path == "" {
		return jobmodel.Descriptor{}, errs.New(errs.InvalidInput, "input path must not be empty")
	}

	normalized := normalize(path)

	if !c.exists(normalized) {
		return jobmodel.Descriptor{}, errs.New(errs.NotFound, fmt.Sprintf("input path does not exist: %s", normalized))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[normalized]; ok {
		return jobmodel.Descriptor{}, errs.New(errs.InvalidInput, fmt.Sprintf("input path already enqueued: %s", normalized))
	}

	resolvedProfile := c.baseProfile
	if overrides.Profile != nil {
		resolvedProfile = *overrides.Profile
	}

	p, ok := profile.Lookup(resolvedProfile)
	if !ok {
		return jobmodel.Descriptor{}, errs.New(errs.InvalidInput, fmt.Sprintf("unknown profile %q", resolvedProfile))
	}

	for _, stem := range overrides.StemsFilter {
		if !p.HasStem(stem) {
			return jobmodel.Descriptor{}, errs.New(errs.InvalidInput, fmt.Sprintf("unsupported stem override: %s", stem))
		}
	}

	c.seen[normalized] = struct{}{}

	return jobmodel.Descriptor{
		InputPath:   normalized,
		Profile:     p.ID,
		StemsFilter: overrides.StemsFilter,
		OutputDir:   outputDir,
	}, nil
}

// Release removes path from the in-flight set, permitting resubmission.
func (c *Catalog) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, normalize(path))
}

// Size reports how many paths are currently in flight.
func (c *Catalog) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// normalize resolves relative path elements without requiring the file to
// exist, mirroring lexically_normal from the reference implementation.
func normalize(path string) string {
	return filepath.Clean(path)
}
