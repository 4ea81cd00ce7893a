package store

import "sync/atomic"

// SnapshotHandle holds the current Snapshot behind an atomic pointer swap
//: readers Load a reference (cheap), the chain service Store()s
// a new Snapshot after each successful reorg. Old snapshots live exactly
// as long as their holders retain them; nothing explicitly invalidates
// them.
type SnapshotHandle struct {
	p atomic.Pointer[Snapshot]
}

func NewSnapshotHandle(initial *Snapshot) *SnapshotHandle {
	h := &SnapshotHandle{}
	h.p.Store(initial)
	return h
}

func (h *SnapshotHandle) Load() *Snapshot { return h.p.Load() }

func (h *SnapshotHandle) Store(s *Snapshot) { h.p.Store(s) }
