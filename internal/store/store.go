// Package store persists the per-class vehicle snapshots and the
// read-only line/shape reference data.
package store

import (
	"context"

	"busao-tracker/internal/vehicle"
)

type Store interface {
	// ReplaceSnapshot swaps the whole snapshot for a class with recs.
	// Readers never observe a mix of two cycles.
	ReplaceSnapshot(ctx context.Context, class vehicle.Class, recs []vehicle.Record) error

	// Snapshot returns the current records for a class, filtered to the
	// given line numbers. An empty filter returns no rows by contract.
	// An empty store is an empty result, not an error.
	Snapshot(ctx context.Context, class vehicle.Class, linhas []string) ([]vehicle.Record, error)

	// SearchLines matches lines by number or name for autocomplete.
	// The query is matched accent- and case-insensitively.
	SearchLines(ctx context.Context, q string, modo vehicle.Class, limit int) ([]vehicle.Line, error)

	// RouteShapes returns the reference polylines for each requested
	// line, keyed by line number. Lines without shapes are omitted.
	RouteShapes(ctx context.Context, linhas []string) (map[string][]vehicle.Polyline, error)

	Ping(ctx context.Context) error
	Close() error
}
