// Package peer implements the peer registry and scoring: slot
// accounting, address-store sampling, ban-list enforcement, and the
// Identify handshake.
package peer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Session is one connected peer's bookkeeping. SessionID is distinct from the remote's stable PeerID: a
// peer that reconnects gets a fresh SessionID each time.
type Session struct {
	ID          peer.ID
	SessionID   uuid.UUID
	Inbound     bool
	ConnectedAt time.Time
	Score       int // positive: useful chain contributor (served blocks/headers)
}

// Registry bounds the number of connected peers and evicts the worst
// inbound session when a new inbound connection arrives at capacity.
type Registry struct {
	mu sync.Mutex

	maxInbound  int
	maxOutbound int
	reserved    map[peer.ID]struct{}

	inbound  map[peer.ID]*Session
	outbound map[peer.ID]*Session
}

func NewRegistry(maxInbound, maxOutbound int, reserved []peer.ID) *Registry {
	r := &Registry{
		maxInbound:  maxInbound,
		maxOutbound: maxOutbound,
		reserved:    make(map[peer.ID]struct{}, len(reserved)),
		inbound:     make(map[peer.ID]*Session),
		outbound:    make(map[peer.ID]*Session),
	}
	for _, id := range reserved {
		r.reserved[id] = struct{}{}
	}
	return r
}

// AddInbound admits a new inbound session, evicting the worst existing
// inbound peer if slots are full (unless p is reserved, which always
// gets a slot). evictedID is valid only when evicted is true.
func (r *Registry) AddInbound(p peer.ID, now time.Time) (evictedID peer.ID, evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, reserved := r.reserved[p]
	if len(r.inbound) >= r.maxInbound && !reserved {
		victim, ok := r.worstInbound()
		if !ok {
			return peer.ID(""), false
		}
		delete(r.inbound, victim)
		evictedID, evicted = victim, true
	}
	r.inbound[p] = &Session{ID: p, SessionID: uuid.New(), Inbound: true, ConnectedAt: now}
	return evictedID, evicted
}

// worstInbound picks the eviction candidate: lowest Score first; among
// peers tied on score (in particular tied at zero, i.e. "not a useful
// chain contributor"), the youngest connection loses.
func (r *Registry) worstInbound() (peer.ID, bool) {
	var worst *Session
	for _, s := range r.inbound {
		if _, isReserved := r.reserved[s.ID]; isReserved {
			continue
		}
		if worst == nil {
			worst = s
			continue
		}
		if s.Score < worst.Score {
			worst = s
			continue
		}
		if s.Score == worst.Score && s.ConnectedAt.After(worst.ConnectedAt) {
			worst = s
		}
	}
	if worst == nil {
		return peer.ID(""), false
	}
	return worst.ID, true
}

// AddOutbound admits a new outbound session if outbound slots remain.
func (r *Registry) AddOutbound(p peer.ID, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outbound) >= r.maxOutbound {
		return false
	}
	r.outbound[p] = &Session{ID: p, SessionID: uuid.New(), Inbound: false, ConnectedAt: now}
	return true
}

// Remove drops a session on disconnect, from whichever slot set it's in.
func (r *Registry) Remove(p peer.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inbound, p)
	delete(r.outbound, p)
}

// AddScore adjusts a connected peer's usefulness score (e.g. +1 for
// serving a requested block, -1 for a deadline miss).
func (r *Registry) AddScore(p peer.ID, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.inbound[p]; ok {
		s.Score += delta
		return
	}
	if s, ok := r.outbound[p]; ok {
		s.Score += delta
	}
}

// Connected reports whether p currently holds an inbound or outbound
// slot.
func (r *Registry) Connected(p peer.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inbound[p]; ok {
		return true
	}
	_, ok := r.outbound[p]
	return ok
}

func (r *Registry) InboundCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inbound)
}

func (r *Registry) OutboundCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outbound)
}
