package relay

import (
	"sync"
	"time"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// InflightProposalWindow bounds how long a GetBlockProposal request is
// tracked before the id is eligible to be asked about again.
const InflightProposalWindow = 15 * time.Second

// InflightProposals records proposal short-ids the node has asked a peer
// about, preventing request amplification when many peers announce the
// same proposal.
type InflightProposals struct {
	mu      sync.Mutex
	askedAt map[molecule.ProposalShortId]time.Time
}

func NewInflightProposals() *InflightProposals {
	return &InflightProposals{askedAt: make(map[molecule.ProposalShortId]time.Time)}
}

// ShouldAsk reports whether id is not currently in flight, marking it in
// flight if so.
func (p *InflightProposals) ShouldAsk(id molecule.ProposalShortId, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if askedAt, ok := p.askedAt[id]; ok && now.Sub(askedAt) < InflightProposalWindow {
		return false
	}
	p.askedAt[id] = now
	return true
}

// Fulfilled clears id's in-flight mark once the proposal is received.
func (p *InflightProposals) Fulfilled(id molecule.ProposalShortId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.askedAt, id)
}

// Sweep drops entries past the window without a response, letting a
// later request for the same id proceed.
func (p *InflightProposals) Sweep(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, at := range p.askedAt {
		if now.Sub(at) >= InflightProposalWindow {
			delete(p.askedAt, id)
		}
	}
}
