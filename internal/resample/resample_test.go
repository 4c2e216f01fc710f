package resample

import (
	"testing"

	"stemsmith/internal/audioio"
)

func TestResampleNoOpWhenRateMatches(t *testing.T) {
	s := New()
	buf := audioio.Buffer{SampleRate: 44100, Channels: [][]float32{{0.1, 0.2, 0.3}}}

	out, err := s.Resample(buf, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if out.SampleRate != 44100 || len(out.Channels[0]) != 3 {
		t.Fatalf("expected passthrough buffer, got %+v", out)
	}
}

func TestResampleUnknownSourceRateFails(t *testing.T) {
	s := New()
	buf := audioio.Buffer{SampleRate: 0, Channels: [][]float32{{0.1, 0.2}}}

	if _, err := s.Resample(buf, 44100); err == nil {
		t.Fatal("expected error for unknown source rate")
	}
}
