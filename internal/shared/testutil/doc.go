// Package testutil provides test helpers shared across packages: a log
// handler that captures slog records for assertions, and license fixtures
// (fixed clock, deterministic random source, legacy-shaped documents).
package testutil
