// Package store implements the durable Store and its lock-free Snapshot
// views: blocks, headers, per-block side data, the live
// cell-set, epoch indexes, and the chain-spec-hash stamp.
package store

// KVEngine is the narrow interface the Store needs from its backing
// key-value engine. One in-process implementation (memkv) is provided;
// swapping in a disk-backed engine (e.g. pebble/bbolt) only requires this
// interface.
type KVEngine interface {
	Get(key []byte) ([]byte, bool)
	NewBatch() Batch
	// NewReadView returns a point-in-time read handle. For an in-memory
	// engine this is a cheap reference to an immutable generation; for a
	// disk engine it would be that engine's native snapshot handle.
	NewReadView() ReadView
	Close() error
}

// ReadView is an immutable, lock-free read handle pinned to one version.
type ReadView interface {
	Get(key []byte) ([]byte, bool)
	// Iterate calls fn for every key with the given prefix in ascending
	// order until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool)
}

// Batch accumulates writes and durably applies them all-or-nothing.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Commit durably applies every Put/Delete in the batch, or none of
	// them if it returns an error.
	Commit() error
}
