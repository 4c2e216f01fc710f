package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"stemsmith/internal/domain"
)

// ModelStatus summarizes cache state for one model profile, computed by the
// caller (typically from a model cache's List operation) so this package
// stays free of a dependency on the cache implementation.
type ModelStatus struct {
	ProfileKey string
	Label      string
	Cached     bool
	Detail     string
}

// Checker validates required filesystem paths and cached model weights.
type Checker struct {
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report. models is
// the already-computed cache status for every known profile.
func (c *Checker) Run(settings domain.Settings, models []ModelStatus) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkDir("cache_root", "Cache root", settings.CacheRoot),
		c.checkDir("output_root", "Output root", settings.OutputRoot),
	}

	for _, m := range models {
		items = append(items, checkModelStatus(m))
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkDir validates a directory exists (creating it if necessary) and is
// writable.
func (c *Checker) checkDir(id, name, path string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	if strings.TrimSpace(path) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set a valid directory path in configuration or via CLI flags."
		return item
	}

	if err := c.mkdirAll(path, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", path)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(path, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", path)
		item.Hint = "Choose a writable directory."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", path)
	return item
}

// checkModelStatus reports whether a profile's weights are cached, without
// triggering a download.
func checkModelStatus(m ModelStatus) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_" + m.ProfileKey,
		Name: m.Label,
	}

	if m.Cached {
		item.Status = domain.DiagnosticStatusPass
		item.Message = m.Detail
		return item
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = m.Detail
	item.Hint = "Weights will be downloaded automatically on first use of this profile."
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
