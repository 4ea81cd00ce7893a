package relay

import (
	"encoding/binary"
	"sync"

	bloomfilter "github.com/holiman/bloomfilter/v2"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// hash64 adapts a precomputed uint64 key to the hash.Hash64 interface
// bloomfilter.Filter expects, the way a fixed-width content hash is
// wrapped for bloom-filter membership tests rather than re-hashed.
type hash64 uint64

func (h hash64) Write(p []byte) (int, error) { return len(p), nil }
func (h hash64) Sum(b []byte) []byte         { return b }
func (h hash64) Reset()                      {}
func (h hash64) Size() int                   { return 8 }
func (h hash64) BlockSize() int              { return 8 }
func (h hash64) Sum64() uint64               { return uint64(h) }

func shortIdKey(id molecule.ProposalShortId) hash64 {
	var buf [8]byte
	copy(buf[:], id[:8])
	return hash64(binary.LittleEndian.Uint64(buf[:]))
}

// AnnounceDedup is the per-peer dedup bloom filter: a
// peer-side filter that suppresses redundant short-id announcements.
type AnnounceDedup struct {
	mu     sync.Mutex
	filter *bloomfilter.Filter
}

// NewAnnounceDedup sizes the filter for maxElements expected announcements
// at a 1% target false-positive rate, consistent with mempool-dedup
// filters elsewhere in the ecosystem.
func NewAnnounceDedup(maxElements uint64) (*AnnounceDedup, error) {
	f, err := bloomfilter.NewOptimal(maxElements, 0.01)
	if err != nil {
		return nil, err
	}
	return &AnnounceDedup{filter: f}, nil
}

// ShouldAnnounce reports whether id has not already been announced to
// this peer, recording it either way (a false positive only ever causes
// an unnecessary suppression, never a duplicate announcement).
func (d *AnnounceDedup) ShouldAnnounce(id molecule.ProposalShortId) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := shortIdKey(id)
	if d.filter.Contains(key) {
		return false
	}
	d.filter.Add(key)
	return true
}

// TxRelayFanout decides which connected peers should receive a
// short-id announcement for a newly admitted transaction: every peer
// that opted into tx relay, excluding the originator, and subject to
// each peer's own dedup filter.
type TxRelayFanout struct {
	mu      sync.Mutex
	dedup   map[string]*AnnounceDedup
	maxSize uint64
}

func NewTxRelayFanout(maxSize uint64) *TxRelayFanout {
	return &TxRelayFanout{dedup: make(map[string]*AnnounceDedup), maxSize: maxSize}
}

func (f *TxRelayFanout) dedupFor(peerID string) (*AnnounceDedup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dedup[peerID]
	if !ok {
		var err error
		d, err = NewAnnounceDedup(f.maxSize)
		if err != nil {
			return nil, err
		}
		f.dedup[peerID] = d
	}
	return d, nil
}

// Targets filters wantTxRelay down to the peers that should receive id's
// announcement: not the originator, and not already told.
func (f *TxRelayFanout) Targets(id molecule.ProposalShortId, originator string, wantTxRelay []string) ([]string, error) {
	var targets []string
	for _, p := range wantTxRelay {
		if p == originator {
			continue
		}
		d, err := f.dedupFor(p)
		if err != nil {
			return nil, err
		}
		if d.ShouldAnnounce(id) {
			targets = append(targets, p)
		}
	}
	return targets, nil
}
