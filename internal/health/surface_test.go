package health_test

import (
	"errors"
	"testing"

	"moodify/internal/health"
	"moodify/internal/services"
)

func TestPublishKeepsOnlyLatestPerSubsystem(t *testing.T) {
	surface := health.NewSurface()

	first := errors.New("first failure")
	second := errors.New("second failure")
	surface.Publish(health.SubsystemOracle, first)
	surface.Publish(health.SubsystemOracle, second)

	entry, ok := surface.Latest(health.SubsystemOracle)
	if !ok {
		t.Fatal("expected an entry")
	}
	if !errors.Is(entry.Err, second) {
		t.Fatalf("latest = %v, want the second failure", entry.Err)
	}
	if len(surface.Snapshot()) != 1 {
		t.Fatalf("snapshot = %d entries, want 1", len(surface.Snapshot()))
	}
}

func TestSubsystemsAreIndependent(t *testing.T) {
	surface := health.NewSurface()

	surface.Publish(health.SubsystemPlayer, errors.New("device gone"))
	surface.Publish(health.SubsystemGraph, errors.New("disk full"))
	surface.Clear(health.SubsystemPlayer)

	if _, ok := surface.Latest(health.SubsystemPlayer); ok {
		t.Fatal("cleared subsystem should be empty")
	}
	if _, ok := surface.Latest(health.SubsystemGraph); !ok {
		t.Fatal("other subsystem must be untouched")
	}
}

func TestPublishNilClears(t *testing.T) {
	surface := health.NewSurface()
	surface.Publish(health.SubsystemAutoDJ, errors.New("boom"))
	surface.Publish(health.SubsystemAutoDJ, nil)
	if _, ok := surface.Latest(health.SubsystemAutoDJ); ok {
		t.Fatal("nil publish should clear the entry")
	}
}

func TestEntryClassifiesAndFlagsPersistent(t *testing.T) {
	surface := health.NewSurface()

	surface.Publish(health.SubsystemPlayer, services.Wrap(services.ErrAuth, "spotify", "state", "token expired", nil))
	entry, ok := surface.Latest(health.SubsystemPlayer)
	if !ok {
		t.Fatal("expected an entry")
	}
	if !errors.Is(entry.Kind, services.ErrAuth) {
		t.Fatalf("kind = %v, want auth sentinel", entry.Kind)
	}
	if !entry.Persistent() {
		t.Fatal("auth failures are persistent")
	}

	surface.Publish(health.SubsystemOracle, services.Wrap(services.ErrTransient, "oracle", "expand", "timeout", nil))
	entry, _ = surface.Latest(health.SubsystemOracle)
	if entry.Persistent() {
		t.Fatal("transient failures are not persistent")
	}
}
