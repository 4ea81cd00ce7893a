package sync

import (
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// DefaultBlockDownloadTimeout is how long a peer has to deliver a
// requested block before it is reassigned.
const DefaultBlockDownloadTimeout = 10 * time.Second

type inflightEntry struct {
	peer     peer.ID
	deadline time.Time
}

// BlockDownloader tracks per-block, single-assignment in-flight requests
//: a block is requested from exactly one peer at a time; a
// deadline miss reassigns it and decrements the delinquent peer's score.
type BlockDownloader struct {
	mu sync.Mutex

	perPeerCap int
	globalCap  int

	inflight    map[molecule.Byte32]inflightEntry
	perPeerLoad map[peer.ID]int
	scores      map[peer.ID]int
}

func NewBlockDownloader(perPeerCap, globalCap int) *BlockDownloader {
	return &BlockDownloader{
		perPeerCap:  perPeerCap,
		globalCap:   globalCap,
		inflight:    make(map[molecule.Byte32]inflightEntry),
		perPeerLoad: make(map[peer.ID]int),
		scores:      make(map[peer.ID]int),
	}
}

// TryAssign assigns hash to p if neither the global nor the per-peer cap
// is exceeded and the block isn't already in flight. Returns false if the
// assignment was refused.
func (d *BlockDownloader) TryAssign(p peer.ID, hash molecule.Byte32, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, already := d.inflight[hash]; already {
		return false
	}
	if len(d.inflight) >= d.globalCap {
		return false
	}
	if d.perPeerLoad[p] >= d.perPeerCap {
		return false
	}
	d.inflight[hash] = inflightEntry{peer: p, deadline: now.Add(DefaultBlockDownloadTimeout)}
	d.perPeerLoad[p]++
	return true
}

// Fulfilled clears hash's in-flight entry on a successful receipt.
func (d *BlockDownloader) Fulfilled(hash molecule.Byte32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.release(hash)
}

func (d *BlockDownloader) release(hash molecule.Byte32) {
	if e, ok := d.inflight[hash]; ok {
		d.perPeerLoad[e.peer]--
		delete(d.inflight, hash)
	}
}

// ReapExpired scans for deadline misses, releasing each one's slot and
// decrementing the delinquent peer's score. Callers are expected to
// re-assign the returned hashes to a different peer.
func (d *BlockDownloader) ReapExpired(now time.Time) []molecule.Byte32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var expired []molecule.Byte32
	for hash, e := range d.inflight {
		if now.After(e.deadline) {
			expired = append(expired, hash)
			d.scores[e.peer]--
			d.release(hash)
		}
	}
	return expired
}

// Score returns a peer's cumulative delinquency score (more negative is
// worse).
func (d *BlockDownloader) Score(p peer.ID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scores[p]
}

// InFlightCount reports the number of blocks currently assigned.
func (d *BlockDownloader) InFlightCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
