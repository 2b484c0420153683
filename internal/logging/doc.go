// Package logging assembles the structured slog loggers used across the
// Moodify core.
//
// It centralizes level and output plumbing and exposes typed attribute
// helpers so every subsystem emits log lines with the same shape. The
// package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
