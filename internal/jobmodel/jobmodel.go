// Package jobmodel defines the data shapes shared across the catalog,
// worker pool, job runner, and separation engine: what a job asks for and
// what came out of running it.
package jobmodel

import (
	"stemsmith/internal/domain"
	"stemsmith/internal/profile"
)

// Overrides customizes a single job's configuration away from the daemon's
// defaults.
type Overrides struct {
	Profile     *profile.ID
	StemsFilter []string
}

// Descriptor is a fully resolved job: an input file plus the concrete
// profile and stem filter it will run with.
type Descriptor struct {
	InputPath   string
	Profile     profile.ID
	StemsFilter []string
	OutputDir   string
}

// Result is what a completed, failed, or cancelled job produced.
type Result struct {
	InputPath string
	OutputDir string
	Status    domain.JobStatus
	Error     string
}
