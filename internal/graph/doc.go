// Package graph owns the taste graph: persistent node/edge storage backed
// by SQLite and the service layer that resolves identities, reinforces
// edges, commits listening sessions, and answers traversal and genre
// aggregation queries.
//
// Nodes and edges are created lazily on first observation and survive until
// an explicit full reset. Identity resolution is idempotent: resolving the
// same external id twice always yields the same node, and duplicate rows
// produced by a creation race are merged toward the earliest-created row on
// the next resolution.
package graph
