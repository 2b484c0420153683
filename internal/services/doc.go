// Package services defines the shared error taxonomy for external
// collaborators (remote player, recommendation oracle, graph store) and
// helpers for tagging failures so callers can classify them without
// string matching.
package services
