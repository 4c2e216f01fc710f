// Package separation drives one job end to end: decode audio, acquire a
// loaded model session, optionally resample to the rate the model expects,
// run inference, and write each resulting stem to disk.
package separation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"stemsmith/internal/audioio"
	"stemsmith/internal/errs"
	"stemsmith/internal/jobmodel"
	"stemsmith/internal/session"
	"stemsmith/internal/workerpool"
)

// Resampler converts a decoded buffer to a target sample rate.
type Resampler interface {
	Resample(buf audioio.Buffer, targetRate int) (audioio.Buffer, error)
}

// modelSampleRate is the sample rate every built-in profile expects its
// input to be resampled to before inference.
const modelSampleRate = 44100

// Engine is a workerpool.Processor: Process satisfies that signature
// directly, so an *Engine can be passed to workerpool.New unmodified.
type Engine struct {
	Loader    audioio.Loader
	Writer    audioio.Writer
	Sessions  *session.Pool
	Resampler Resampler
}

// Process implements workerpool.Processor.
func (e *Engine) Process(ctx context.Context, descriptor jobmodel.Descriptor, progress workerpool.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.Loader == nil {
		return "", errs.New(errs.ConfigurationError, "separation engine has no audio loader configured")
	}
	buf, err := e.Loader.Load(descriptor.InputPath)
	if err != nil {
		return "", errs.Wrap(errs.ProcessingError, fmt.Sprintf("load audio %s", descriptor.InputPath), err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.Sessions == nil {
		return "", errs.New(errs.ConfigurationError, "separation engine has no session pool configured")
	}
	handle, err := e.Sessions.Acquire(descriptor.Profile)
	if err != nil {
		return "", err
	}
	defer handle.Release()

	if buf.SampleRate != modelSampleRate && e.Resampler != nil {
		buf, err = e.Resampler.Resample(buf, modelSampleRate)
		if err != nil {
			return "", errs.Wrap(errs.ProcessingError, "resample input audio", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	progressAdapter := func(fraction float64) {
		if progress != nil {
			progress(fraction, "separating")
		}
	}

	result, err := handle.Session().Separate(buf, descriptor.StemsFilter, progressAdapter)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	outputDir := descriptor.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(".", jobOutputName(descriptor.InputPath))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errs.Wrap(errs.ProcessingError, "create output directory", err)
	}

	if e.Writer == nil {
		return "", errs.New(errs.ConfigurationError, "separation engine has no audio writer configured")
	}
	for stem, stemBuf := range result.Stems {
		stemPath := filepath.Join(outputDir, stem+".wav")
		if err := e.Writer.Write(stemPath, stemBuf); err != nil {
			return "", errs.Wrap(errs.ProcessingError, fmt.Sprintf("write stem %s", stem), err)
		}
	}

	return outputDir, nil
}

// jobOutputName mirrors job_output_directory's fallback naming when no
// explicit output directory was assigned.
func jobOutputName(inputPath string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
