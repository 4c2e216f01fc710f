// Package resample adapts github.com/tphakala/go-audio-resampling to the
// planar float32 Buffer type used throughout the separation pipeline.
package resample

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"stemsmith/internal/audioio"
	"stemsmith/internal/errs"
)

// Resampler converts a Buffer from its native sample rate to a target rate.
type Resampler interface {
	Resample(buf audioio.Buffer, targetRate int) (audioio.Buffer, error)
}

// Soxr is the production Resampler, backed by a high-quality pure-Go
// resampling library.
type Soxr struct{}

// New builds the production resampler.
func New() *Soxr {
	return &Soxr{}
}

// Resample converts buf to targetRate, processing each channel
// independently. If buf is already at targetRate it is returned unchanged.
func (s *Soxr) Resample(buf audioio.Buffer, targetRate int) (audioio.Buffer, error) {
	if buf.SampleRate == targetRate || targetRate <= 0 {
		return buf, nil
	}
	if buf.SampleRate <= 0 {
		return audioio.Buffer{}, errs.New(errs.ProcessingError, "cannot resample buffer with unknown source rate")
	}

	out := audioio.Buffer{SampleRate: targetRate, Channels: make([][]float32, len(buf.Channels))}

	for i, channel := range buf.Channels {
		config := &resampling.Config{
			InputRate:  float64(buf.SampleRate),
			OutputRate: float64(targetRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		r, err := resampling.New(config)
		if err != nil {
			return audioio.Buffer{}, errs.Wrap(errs.ProcessingError, "create resampler", err)
		}

		input := make([]float64, len(channel))
		for j, sample := range channel {
			input[j] = float64(sample)
		}

		output, err := r.Process(input)
		if err != nil {
			return audioio.Buffer{}, errs.Wrap(errs.ProcessingError, fmt.Sprintf("resample channel %d", i), err)
		}

		converted := make([]float32, len(output))
		for j, sample := range output {
			converted[j] = float32(sample)
		}
		out.Channels[i] = converted
	}

	return out, nil
}
