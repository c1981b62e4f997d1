// Package dedup tracks feed entries already delivered to the channel.
// The store is injectable: the in-memory implementation matches the
// process-lifetime semantics of the original design, the sqlite one
// survives restarts.
package dedup

import "context"

// Store keeps identifiers of delivered items.
type Store interface {
	// Seen reports whether the id was marked before.
	Seen(ctx context.Context, id string) (bool, error)
	// Mark records the id as delivered. Marking an already-marked id is a no-op.
	Mark(ctx context.Context, id string) error
	// Close releases store resources.
	Close() error
}
