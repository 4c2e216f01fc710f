// Package fetcher retrieves model weight files over HTTP, reporting
// download progress as bytes arrive.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"stemsmith/internal/errs"
)

// ProgressFunc is invoked periodically as bytes are received.
type ProgressFunc func(bytesDownloaded, totalBytes int64)

// WeightFetcher retrieves a model weight file from a URL to a local
// destination path, optionally reporting progress.
type WeightFetcher interface {
	FetchWeights(ctx context.Context, url, destination string, progress ProgressFunc) error
}

// HTTPFetcher is the concrete WeightFetcher used in production, backed by
// net/http.
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPFetcher builds a fetcher with a sane default timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:  http.DefaultClient,
		Timeout: 30 * time.Minute,
	}
}

// FetchWeights downloads url directly into destination (truncating any
// existing file), leaving it to the caller to pass a staging path and
// rename it into place atomically.
func (f *HTTPFetcher) FetchWeights(ctx context.Context, url, destination string, progress ProgressFunc) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.FetcherError, "build download request", err)
	}
	req.Header.Set("User-Agent", "stemsmith/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return errs.Wrap(errs.FetcherError, fmt.Sprintf("download %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.FetcherError, fmt.Sprintf("download %s: unexpected status %d", url, resp.StatusCode))
	}

	out, err := createFile(destination)
	if err != nil {
		return errs.Wrap(errs.FetcherError, "create destination file", err)
	}
	defer out.Close()

	var writer io.Writer = out
	if progress != nil {
		writer = &progressWriter{w: out, total: resp.ContentLength, onProgress: progress}
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return errs.Wrap(errs.FetcherError, fmt.Sprintf("download %s", url), err)
	}

	return nil
}

// createFile truncates and (re)creates the destination file for writing.
func createFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

// progressWriter wraps an io.Writer, invoking onProgress as bytes flow
// through it.
type progressWriter struct {
	w          io.Writer
	total      int64
	downloaded int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(chunk []byte) (int, error) {
	n, err := p.w.Write(chunk)
	p.downloaded += int64(n)
	if p.onProgress != nil {
		p.onProgress(p.downloaded, p.total)
	}
	return n, err
}
