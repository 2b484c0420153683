// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"moodify/internal/config"
	"moodify/internal/graph"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default test config invalid: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a graph store for the test and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *graph.Store {
	t.Helper()

	store, err := graph.Open(cfg)
	if err != nil {
		t.Fatalf("open graph store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close graph store: %v", err)
		}
	})
	return store
}
