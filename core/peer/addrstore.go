package peer

import (
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// AddrFlags marks what services an address's peer advertised.
type AddrFlags uint8

const (
	FlagFullNode AddrFlags = 1 << iota
	FlagRelay
)

// AddrInfo is the persistent per-address record.
type AddrInfo struct {
	Addr            string
	Flags           AddrFlags
	LastConnectedMs uint64
	TriedCount      uint32
	lastAttemptAt   time.Time
}

// AddrCountLimit bounds the address store's size.
const AddrCountLimit = 20000

// AddrStore is the persistent map<peer_id, AddrInfo> plus the sampling
// operations consumed by the outbound-connection background task.
type AddrStore struct {
	mu        sync.Mutex
	byPeer    map[peer.ID]*AddrInfo
	connected map[peer.ID]struct{}
}

func NewAddrStore() *AddrStore {
	return &AddrStore{byPeer: make(map[peer.ID]*AddrInfo), connected: make(map[peer.ID]struct{})}
}

func (s *AddrStore) Upsert(id peer.ID, info AddrInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.byPeer) >= AddrCountLimit {
		s.evictOneLocked()
	}
	cp := info
	s.byPeer[id] = &cp
}

func (s *AddrStore) MarkConnected(id peer.ID, nowMs uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected[id] = struct{}{}
	if info, ok := s.byPeer[id]; ok {
		info.LastConnectedMs = nowMs
	}
}

func (s *AddrStore) MarkDisconnected(id peer.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected, id)
}

func (s *AddrStore) MarkAttempt(id peer.ID, now time.Time, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.byPeer[id]
	if !ok {
		return
	}
	info.lastAttemptAt = now
	if !succeeded {
		info.TriedCount++
	} else {
		info.TriedCount = 0
	}
}

// FetchAddrsToFeeler returns up to n addresses not tried recently,
// excluding currently connected peers and addresses with a recent
// success.
func (s *AddrStore) FetchAddrsToFeeler(n int, now time.Time) []peer.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []peer.ID
	for id, info := range s.byPeer {
		if _, connected := s.connected[id]; connected {
			continue
		}
		if now.Sub(info.lastAttemptAt) < time.Minute {
			continue
		}
		if now.Sub(time.UnixMilli(int64(info.LastConnectedMs))) < time.Hour {
			continue // recent success; not a feeler candidate
		}
		candidates = append(candidates, id)
	}
	return capPeerIDs(candidates, n)
}

// FetchAddrsToAttempt returns up to n previously-connected addresses
// passing filter, for the outbound-connection background task.
func (s *AddrStore) FetchAddrsToAttempt(n int, filter func(AddrInfo) bool) []peer.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []peer.ID
	for id, info := range s.byPeer {
		if _, connected := s.connected[id]; connected {
			continue
		}
		if info.LastConnectedMs == 0 {
			continue
		}
		if filter != nil && !filter(*info) {
			continue
		}
		candidates = append(candidates, id)
	}
	return capPeerIDs(candidates, n)
}

// FetchRandomAddrs returns up to n currently connected peers' addresses,
// for gossip responses. The store does not record connection direction:
// every peer passed to MarkConnected is eligible, inbound or outbound.
func (s *AddrStore) FetchRandomAddrs(n int, filter func(AddrInfo) bool) []peer.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []peer.ID
	for id := range s.connected {
		info, ok := s.byPeer[id]
		if !ok {
			continue
		}
		if filter != nil && !filter(*info) {
			continue
		}
		candidates = append(candidates, id)
	}
	return capPeerIDs(candidates, n)
}

func capPeerIDs(ids []peer.ID, n int) []peer.ID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

// evictOneLocked drops a single address when the store is at
// AddrCountLimit, preferring a terrible peer (failed attempts, last one
// more than 60s ago); with no terrible peer it drops an arbitrary one.
// Addresses are grouped by addrBucket first, but the grouping does not
// change which address is chosen. Caller holds s.mu.
func (s *AddrStore) evictOneLocked() {
	buckets := make(map[string][]peer.ID)
	for id, info := range s.byPeer {
		bucket := addrBucket(info.Addr)
		buckets[bucket] = append(buckets[bucket], id)
	}

	var best peer.ID
	var bestInfo *AddrInfo
	now := time.Now()
	for _, ids := range buckets {
		for _, id := range ids {
			info := s.byPeer[id]
			terrible := info.TriedCount > 0 && now.Sub(info.lastAttemptAt) > 60*time.Second
			if bestInfo == nil || (terrible && !isTerrible(bestInfo, now)) {
				best, bestInfo = id, info
			}
		}
	}
	if bestInfo != nil {
		delete(s.byPeer, best)
	}
}

func isTerrible(info *AddrInfo, now time.Time) bool {
	return info.TriedCount > 0 && now.Sub(info.lastAttemptAt) > 60*time.Second
}

// addrBucket groups an address string by the network MultiaddrToIPNetwork
// returns for it (/32 for IPv4, /64 for IPv6), the same granularity used
// for bans, falling back to the address itself when it has no IP part.
func addrBucket(addr string) string {
	network, err := MultiaddrToIPNetwork(addr)
	if err != nil {
		return addr
	}
	return network
}
