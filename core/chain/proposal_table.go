package chain

import (
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
)

// ProposalTable is the finite map block_number -> set<ProposalShortId>.
// ChainService's worker is its only mutator, so no lock is needed.
type ProposalTable struct {
	window consensus.ProposalWindow
	byNumber map[uint64]map[molecule.ProposalShortId]struct{}
}

func NewProposalTable(window consensus.ProposalWindow) *ProposalTable {
	return &ProposalTable{
		window:   window,
		byNumber: make(map[uint64]map[molecule.ProposalShortId]struct{}),
	}
}

// idsForBlock is the union of a block's own proposals plus every uncle's
// proposals.
func idsForBlock(b molecule.Block) map[molecule.ProposalShortId]struct{} {
	set := make(map[molecule.ProposalShortId]struct{}, len(b.Proposals))
	for _, id := range b.Proposals {
		set[id] = struct{}{}
	}
	for _, u := range b.Uncles {
		for _, id := range u.Proposals {
			set[id] = struct{}{}
		}
	}
	return set
}

// Insert records the proposal ids effective at a block's height (attach).
func (t *ProposalTable) Insert(b molecule.Block) {
	t.byNumber[b.Header.Number] = idsForBlock(b)
}

// Remove deletes a block's proposal ids (detach).
func (t *ProposalTable) Remove(b molecule.Block) {
	delete(t.byNumber, b.Header.Number)
}

// Prune evicts every entry at or below the given block number and
// returns the evicted ids so the tx pool can demote the transactions
// whose proposal window just expired.
func (t *ProposalTable) Prune(belowOrEqual uint64) []molecule.ProposalShortId {
	var expired []molecule.ProposalShortId
	for n, ids := range t.byNumber {
		if n <= belowOrEqual {
			for id := range ids {
				expired = append(expired, id)
			}
			delete(t.byNumber, n)
		}
	}
	return expired
}

// View computes (set, gap) for the block at tip+1:
// set is proposals effective for tip+1, those in [tip+1-far, tip+1-near];
// gap is those in (tip+1-near, tip] that enter the window as tip
// advances.
func (t *ProposalTable) View(tip uint64) store.ProposalsView {
	nextHeight := tip + 1
	v := store.ProposalsView{
		Set: make(map[molecule.ProposalShortId]struct{}),
		Gap: make(map[molecule.ProposalShortId]struct{}),
	}
	near := t.window.Near
	for number, ids := range t.byNumber {
		if t.window.InWindow(nextHeight, number) {
			for id := range ids {
				v.Set[id] = struct{}{}
			}
			continue
		}
		// Gap region: (nextHeight-near, tip] i.e. number > nextHeight-near
		// and number <= tip, which (since nextHeight=tip+1) is
		// number > tip+1-near and number <= tip.
		if nextHeight > near && number > nextHeight-near && number <= tip {
			for id := range ids {
				v.Gap[id] = struct{}{}
			}
		}
	}
	return v
}
