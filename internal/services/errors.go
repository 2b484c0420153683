package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks network and timeout failures that are safe to retry.
	ErrTransient = errors.New("transient failure")
	// ErrAuth marks failures that require the user to reconnect their account.
	ErrAuth = errors.New("authentication required")
	// ErrRateLimited marks oracle or player responses throttled upstream.
	ErrRateLimited = errors.New("rate limited")
	// ErrOracle marks generic recommendation oracle failures.
	ErrOracle = errors.New("oracle error")
	// ErrNotFound marks missing playback devices or absent candidates.
	ErrNotFound = errors.New("not found")
	// ErrDataIntegrity marks self-healable graph inconsistencies.
	ErrDataIntegrity = errors.New("data integrity")
	// ErrValidation marks caller mistakes that retrying cannot fix.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the sentinel an error is tagged with, or nil when the
// error carries no marker.
func Classify(err error) error {
	for _, marker := range []error{
		ErrAuth,
		ErrRateLimited,
		ErrOracle,
		ErrNotFound,
		ErrDataIntegrity,
		ErrValidation,
		ErrConfiguration,
		ErrTransient,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

// Retryable reports whether the error is safe to retry automatically.
func Retryable(err error) bool {
	switch Classify(err) {
	case ErrTransient, ErrRateLimited:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
