package peer

import (
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// BanDurationOnChainMismatch is how long a mismatched chain_id bans a
// peer, so different networks don't cross-pollinate peer stores.
const BanDurationOnChainMismatch = 5 * time.Minute

const maxListenAddrs = 10

// IdentifyMessage is exchanged once per session on open.
type IdentifyMessage struct {
	ChainID       string
	Flags         uint32
	ClientVersion string
	ListenAddrs   []string
	ObservedAddr  string
}

// Misbehavior names a protocol violation that should count against a
// peer's ban score without necessarily being an outright ban trigger.
type Misbehavior string

const (
	MisbehaviorDuplicateIdentify Misbehavior = "duplicate identify"
	MisbehaviorTooManyListenAddrs Misbehavior = "more than 10 listen addrs"
)

// IdentifyState tracks whether a session has already exchanged Identify.
type IdentifyState struct {
	seen map[peer.ID]struct{}
}

func NewIdentifyState() *IdentifyState {
	return &IdentifyState{seen: make(map[peer.ID]struct{})}
}

// HandleIdentify validates an incoming Identify against the local
// chain_id, banning the /32 or /64 bucket on mismatch (caller supplies
// the peer's network bucket, computed via MultiaddrToIPNetwork from the
// session's remote multiaddr).
func (s *IdentifyState) HandleIdentify(p peer.ID, network string, msg IdentifyMessage, localChainID string, bans *BanList, now time.Time) (misbehaviors []Misbehavior, err error) {
	if _, dup := s.seen[p]; dup {
		misbehaviors = append(misbehaviors, MisbehaviorDuplicateIdentify)
	}
	s.seen[p] = struct{}{}

	if msg.ChainID != localChainID {
		bans.Ban(network, now.Add(BanDurationOnChainMismatch))
		return misbehaviors, fmt.Errorf("chain_id mismatch: peer=%q local=%q", msg.ChainID, localChainID)
	}

	if len(msg.ListenAddrs) > maxListenAddrs {
		misbehaviors = append(misbehaviors, MisbehaviorTooManyListenAddrs)
	}

	return misbehaviors, nil
}

// Forget drops a session's Identify-seen mark, e.g. on disconnect.
func (s *IdentifyState) Forget(p peer.ID) {
	delete(s.seen, p)
}
