package relay

import (
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// PendingExpiry is how long an unreconstructed compact block's partial
// state is kept before it is dropped.
const PendingExpiry = 30 * time.Second

// peerRequest records what one peer was asked for while reconstructing a
// pending compact block.
type peerRequest struct {
	txIndexes    []uint32
	uncleIndexes []uint32
}

type pendingEntry struct {
	compact       CompactBlock
	inflightPeers map[peer.ID]peerRequest
	receivedAt    time.Time
}

// PendingCompactBlocks is the shared cache keyed by block hash.
type PendingCompactBlocks struct {
	mu      sync.Mutex
	entries map[molecule.Byte32]*pendingEntry
}

func NewPendingCompactBlocks() *PendingCompactBlocks {
	return &PendingCompactBlocks{entries: make(map[molecule.Byte32]*pendingEntry)}
}

func (p *PendingCompactBlocks) Put(hash molecule.Byte32, cb CompactBlock, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[hash] = &pendingEntry{compact: cb, inflightPeers: make(map[peer.ID]peerRequest), receivedAt: now}
}

func (p *PendingCompactBlocks) RecordRequest(hash molecule.Byte32, from peer.ID, txIdx, uncleIdx []uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[hash]
	if !ok {
		return
	}
	e.inflightPeers[from] = peerRequest{txIndexes: txIdx, uncleIndexes: uncleIdx}
}

func (p *PendingCompactBlocks) Get(hash molecule.Byte32) (CompactBlock, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[hash]
	if !ok {
		return CompactBlock{}, false
	}
	return e.compact, true
}

func (p *PendingCompactBlocks) Remove(hash molecule.Byte32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, hash)
}

// Expire drops entries older than PendingExpiry, returning their hashes.
func (p *PendingCompactBlocks) Expire(now time.Time) []molecule.Byte32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []molecule.Byte32
	for hash, e := range p.entries {
		if now.Sub(e.receivedAt) > PendingExpiry {
			expired = append(expired, hash)
			delete(p.entries, hash)
		}
	}
	return expired
}
