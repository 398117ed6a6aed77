// Package analytics keeps usage counters in three buckets: global, per-day,
// and per-brand.
package analytics

import (
	"context"
	"errors"
	"time"
)

var ErrEventRequired = errors.New("analytics: event type is required")

// Event is one recorded occurrence.
type Event struct {
	Type  string `json:"eventType"`
	Brand string `json:"brand,omitempty"`
}

// Snapshot is the full counter state returned by the analytics endpoint.
type Snapshot struct {
	Global map[string]int64            `json:"global"`
	Today  map[string]int64            `json:"today"`
	Brands map[string]map[string]int64 `json:"brands"`
}

// Store records events and reports counter snapshots.
type Store interface {
	Record(ctx context.Context, ev Event) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }
