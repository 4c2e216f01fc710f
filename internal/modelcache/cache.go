// Package modelcache manages content-addressed, on-disk storage of model
// weight files, downloading and verifying them on first use.
package modelcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"stemsmith/internal/errs"
	"stemsmith/internal/fetcher"
	"stemsmith/internal/manifest"
	"stemsmith/internal/profile"
)

// Handle describes a ready-to-use weight file for one profile.
type Handle struct {
	Profile     profile.ID
	WeightsPath string
	SHA256      string
	SizeBytes   int64
	WasCached   bool
}

// Status reports whether a profile's weights are present in the cache,
// without triggering a download.
type Status struct {
	Profile   profile.ID
	Cached    bool
	Path      string
	SizeBytes int64
	SHA256    string
}

// ProgressFunc reports weight download progress for a given profile.
type ProgressFunc func(id profile.ID, bytesDownloaded, totalBytes int64)

// Cache serializes downloads per profile and verifies content on disk
// before handing out a Handle.
type Cache struct {
	root     string
	manifest *manifest.Manifest
	fetcher  fetcher.WeightFetcher
	progress ProgressFunc

	mu     sync.Mutex
	states map[profile.ID]*profileState
}

// profileState holds the per-profile mutex serializing concurrent
// EnsureReady calls for the same profile.
type profileState struct {
	mu sync.Mutex
}

// New builds a cache rooted at root, using m to resolve download metadata
// and f to perform downloads.
func New(root string, m *manifest.Manifest, f fetcher.WeightFetcher, progress ProgressFunc) *Cache {
	return &Cache{
		root:     root,
		manifest: m,
		fetcher:  f,
		progress: progress,
		states:   make(map[profile.ID]*profileState),
	}
}

// Root returns the cache's root directory.
func (c *Cache) Root() string {
	return c.root
}

// stateFor returns (creating if needed) the per-profile lock.
func (c *Cache) stateFor(id profile.ID) *profileState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[id]
	if !ok {
		st = &profileState{}
		c.states[id] = st
	}
	return st
}

func (c *Cache) weightPath(entry manifest.Entry) string {
	p, _ := profile.Lookup(entry.Profile)
	return filepath.Join(c.root, p.Key, entry.Filename)
}

// EnsureReady returns a Handle for profile id, downloading and verifying
// the weight file first if it is not already cached.
func (c *Cache) EnsureReady(ctx context.Context, id profile.ID) (Handle, error) {
	entry, ok := c.manifest.Find(id)
	if !ok {
		return Handle{}, errs.New(errs.NotFound, fmt.Sprintf("no manifest entry for profile %q", id))
	}

	path := c.weightPath(entry)

	if fileReady(path, entry) {
		return Handle{Profile: id, WeightsPath: path, SHA256: entry.SHA256, SizeBytes: entry.SizeBytes, WasCached: true}, nil
	}

	st := c.stateFor(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	if fileReady(path, entry) {
		return Handle{Profile: id, WeightsPath: path, SHA256: entry.SHA256, SizeBytes: entry.SizeBytes, WasCached: true}, nil
	}

	if err := c.downloadAndStage(ctx, entry, path); err != nil {
		return Handle{}, err
	}

	return Handle{Profile: id, WeightsPath: path, SHA256: entry.SHA256, SizeBytes: entry.SizeBytes, WasCached: false}, nil
}

// downloadAndStage fetches entry's weights to a temporary sibling of path,
// verifies it, then atomically renames it into place.
func (c *Cache) downloadAndStage(ctx context.Context, entry manifest.Entry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.CacheError, "create cache directory", err)
	}

	staging := path + ".tmp"
	if err := os.Remove(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Wrap(errs.CacheError, "remove stale staging file", err)
	}

	var onProgress fetcher.ProgressFunc
	if c.progress != nil {
		onProgress = func(downloaded, total int64) { c.progress(entry.Profile, downloaded, total) }
	}

	if err := c.fetcher.FetchWeights(ctx, entry.URL, staging, onProgress); err != nil {
		_ = os.Remove(staging)
		return err
	}

	if entry.SizeBytes > 0 {
		info, err := os.Stat(staging)
		if err != nil || info.Size() != entry.SizeBytes {
			_ = os.Remove(staging)
			return errs.New(errs.CacheError, fmt.Sprintf("downloaded size mismatch for profile %q", entry.Profile))
		}
	}

	ok, err := verifyChecksum(staging, entry)
	if err != nil {
		_ = os.Remove(staging)
		return errs.Wrap(errs.CacheError, "verify checksum", err)
	}
	if !ok {
		_ = os.Remove(staging)
		return errs.New(errs.CacheError, fmt.Sprintf("checksum mismatch for profile %q", entry.Profile))
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(staging)
		return errs.Wrap(errs.CacheError, "remove stale target", err)
	}

	if err := os.Rename(staging, path); err != nil {
		_ = os.Remove(staging)
		return errs.Wrap(errs.CacheError, "stage weight file", err)
	}

	return nil
}

// Purge removes one profile's cache directory (its weight file and any
// staging file), if present.
func (c *Cache) Purge(id profile.ID) error {
	entry, ok := c.manifest.Find(id)
	if !ok {
		return errs.New(errs.NotFound, fmt.Sprintf("no manifest entry for profile %q", id))
	}

	st := c.stateFor(id)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.RemoveAll(filepath.Dir(c.weightPath(entry))); err != nil {
		return errs.Wrap(errs.CacheError, "purge cached weights", err)
	}
	return nil
}

// PurgeAll removes the whole cache root, holding every known profile's
// lock so no download is staged while it is removed.
func (c *Cache) PurgeAll() error {
	for _, p := range profile.All() {
		st := c.stateFor(p.ID)
		st.mu.Lock()
		defer st.mu.Unlock()
	}
	if err := os.RemoveAll(c.root); err != nil {
		return errs.Wrap(errs.CacheError, "purge cache root", err)
	}
	return nil
}

// List reports cache status for every known profile without downloading.
func (c *Cache) List() []Status {
	out := make([]Status, 0, len(profile.All()))
	for _, p := range profile.All() {
		entry, ok := c.manifest.Find(p.ID)
		if !ok {
			out = append(out, Status{Profile: p.ID, Cached: false})
			continue
		}
		path := c.weightPath(entry)
		out = append(out, Status{
			Profile:   p.ID,
			Cached:    fileReady(path, entry),
			Path:      path,
			SizeBytes: entry.SizeBytes,
			SHA256:    entry.SHA256,
		})
	}
	return out
}

// fileReady reports whether path exists, matches the entry's declared size
// (if any), and passes checksum verification. A checksum mismatch deletes
// the stale file so a subsequent EnsureReady re-downloads it.
func fileReady(path string, entry manifest.Entry) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if entry.SizeBytes > 0 && info.Size() != entry.SizeBytes {
		return false
	}

	ok, err := verifyChecksum(path, entry)
	if err != nil || !ok {
		_ = os.Remove(path)
		return false
	}
	return true
}

// verifyChecksum hashes the file at path and compares it against entry's
// declared SHA-256 digest.
func verifyChecksum(path string, entry manifest.Entry) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}

	return hex.EncodeToString(h.Sum(nil)) == entry.SHA256, nil
}
