package session

import (
	"testing"

	"stemsmith/internal/audioio"
	"stemsmith/internal/profile"
)

func testProfile() profile.Profile {
	p, _ := profile.Lookup(profile.BalancedFourStem)
	return p
}

func TestSeparateLoadsOnceAndRunsInference(t *testing.T) {
	loadCalls := 0
	s := New(testProfile(),
		func() (string, error) { return "/weights/four.bin", nil },
		func(path string) error { loadCalls++; return nil },
		func(buf audioio.Buffer, stems []string, progress ProgressFunc) (Result, error) {
			if progress != nil {
				progress(1.0)
			}
			return Result{Stems: map[string]audioio.Buffer{"vocals": buf}}, nil
		},
	)

	buf := audioio.Buffer{SampleRate: 44100, Channels: [][]float32{{0.1}}}

	if _, err := s.Separate(buf, nil, nil); err != nil {
		t.Fatalf("Separate() error = %v", err)
	}
	if _, err := s.Separate(buf, nil, nil); err != nil {
		t.Fatalf("Separate() second call error = %v", err)
	}

	if loadCalls != 1 {
		t.Fatalf("load called %d times, want 1", loadCalls)
	}
}

func TestSeparateRejectsUnsupportedStem(t *testing.T) {
	s := New(testProfile(),
		func() (string, error) { return "/weights/four.bin", nil },
		func(path string) error { return nil },
		func(buf audioio.Buffer, stems []string, progress ProgressFunc) (Result, error) {
			return Result{}, nil
		},
	)

	_, err := s.Separate(audioio.Buffer{}, []string{"piano"}, nil)
	if err == nil {
		t.Fatal("expected error for a stem the profile does not produce")
	}
}

func TestSeparateWithoutHooksReturnsConfigurationError(t *testing.T) {
	s := New(testProfile(), nil, nil, nil)

	if _, err := s.Separate(audioio.Buffer{}, nil, nil); err == nil {
		t.Fatal("expected configuration error when hooks are unset")
	}
}

func TestPoolRecyclesSessions(t *testing.T) {
	built := 0
	pool := NewPool(func(id profile.ID) (*Session, error) {
		built++
		return New(testProfile(), nil, nil, nil), nil
	})

	h1, err := pool.Acquire(profile.BalancedFourStem)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	h1.Release()

	h2, err := pool.Acquire(profile.BalancedFourStem)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	h2.Release()

	if built != 1 {
		t.Fatalf("factory called %d times, want 1", built)
	}
}

func TestPoolWithoutFactoryFails(t *testing.T) {
	pool := NewPool(nil)
	if _, err := pool.Acquire(profile.BalancedFourStem); err == nil {
		t.Fatal("expected error for pool with no factory")
	}
}
