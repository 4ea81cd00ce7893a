package sync

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/core/chain"
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerHeaderState tracks one peer's header-sync progress.
type PeerHeaderState struct {
	BestKnownHash   molecule.Byte32
	BestKnownNumber uint64
	LastCommonHash  molecule.Byte32
}

// HeaderSync owns the per-peer header state and validates incoming
// Headers batches before admitting them to the header store.
type HeaderSync struct {
	reader  ChainReader
	verify  chain.HeaderVerifier
	peers   map[peer.ID]*PeerHeaderState
}

func NewHeaderSync(reader ChainReader, verify chain.HeaderVerifier) *HeaderSync {
	return &HeaderSync{reader: reader, verify: verify, peers: make(map[peer.ID]*PeerHeaderState)}
}

func (h *HeaderSync) StateFor(p peer.ID) *PeerHeaderState {
	s, ok := h.peers[p]
	if !ok {
		s = &PeerHeaderState{}
		h.peers[p] = s
	}
	return s
}

// ProcessHeaders validates one Headers response as a whole: continuity
// (headers[i+1].ParentHash == headers[i].BlockHash()) and the
// HeaderVerifier check on each header, which is the contextless header
// check; no difficulty check against the epoch schedule or other chain
// state is made here. A single bad header rejects the whole batch rather
// than partially applying it, and the caller bans the peer.
//
// It returns whether another GetHeaders should be issued (the batch was
// exactly MaxHeadersLen long, meaning more headers likely remain) and the
// hash to request from next.
func (h *HeaderSync) ProcessHeaders(p peer.ID, headers []molecule.Header) (requestMore bool, from molecule.Byte32, err error) {
	if len(headers) == 0 {
		return false, molecule.Byte32{}, nil
	}
	state := h.StateFor(p)

	for i, hdr := range headers {
		if err := h.verify.VerifyHeader(hdr); err != nil {
			return false, molecule.Byte32{}, fmt.Errorf("header %d invalid: %w", i, err)
		}
		if i == 0 {
			continue
		}
		if headers[i].ParentHash != headers[i-1].BlockHash() {
			return false, molecule.Byte32{}, fmt.Errorf("header %d does not continue header %d", i, i-1)
		}
	}

	last := headers[len(headers)-1]
	state.BestKnownHash = last.BlockHash()
	state.BestKnownNumber = last.Number

	if len(headers) == MaxHeadersLen {
		return true, state.BestKnownHash, nil
	}
	return false, molecule.Byte32{}, nil
}
