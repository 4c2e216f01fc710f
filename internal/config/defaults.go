package config

import (
	"os"
	"path/filepath"
	"runtime"

	"stemsmith/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		BindAddress: "127.0.0.1",
		Port:        8641,
		CacheRoot:   filepath.Join(homeDir, ".stemsmith", "cache"),
		OutputRoot:  filepath.Join(homeDir, "stemsmith-output"),
		Workers:     defaultWorkerCount(),
	}
}

// defaultWorkerCount mirrors hardware_concurrency() from the reference pool.
func defaultWorkerCount() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
