package services_test

import (
	"errors"
	"fmt"
	"testing"

	"moodify/internal/services"
)

func TestWrapTagsAndPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "spotify", "state", "poll failed", cause)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	want := "transient failure: spotify: state: poll failed: connection refused"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "playback", "replace", "no tracks to play", nil)
	want := "validation error: playback: replace: no tracks to play"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsNilMarkerToTransient(t *testing.T) {
	err := services.Wrap(nil, "oracle", "expand", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestClassifyFindsSentinelThroughWrapping(t *testing.T) {
	cases := []struct {
		marker error
	}{
		{services.ErrAuth},
		{services.ErrRateLimited},
		{services.ErrOracle},
		{services.ErrNotFound},
		{services.ErrDataIntegrity},
		{services.ErrValidation},
		{services.ErrConfiguration},
		{services.ErrTransient},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", services.Wrap(tc.marker, "c", "op", "m", nil))
		if got := services.Classify(wrapped); got != tc.marker {
			t.Errorf("Classify(%v wrap) = %v", tc.marker, got)
		}
	}
	if got := services.Classify(errors.New("untyped")); got != nil {
		t.Errorf("untyped error classified as %v", got)
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTransient, "c", "op", "", nil)) {
		t.Error("transient should be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrRateLimited, "c", "op", "", nil)) {
		t.Error("rate limited should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrAuth, "c", "op", "", nil)) {
		t.Error("auth should not be retryable")
	}
	if services.Retryable(errors.New("untyped")) {
		t.Error("untyped should not be retryable")
	}
}
