package chain

import (
	"math/big"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// ForkChanges is the result of fork analysis: the blocks to
// detach from the current main chain and attach from the candidate chain,
// plus the proposal ids each side contributes.
type ForkChanges struct {
	Attached               []molecule.Block
	Detached               []molecule.Block
	AttachedProposalIds    []molecule.ProposalShortId
	DetachedProposalIds    []molecule.ProposalShortId
}

// blockReader is the minimal read surface FindFork needs; satisfied by
// both *store.Store and *store.Snapshot.
type blockReader interface {
	GetBlockHeader(hash molecule.Byte32) (molecule.Header, bool)
	GetBlock(hash molecule.Byte32) (molecule.Block, bool)
	GetBlockHash(number uint64) (molecule.Byte32, bool)
}

// FindFork walks back from the current tip and the candidate tip in
// lockstep until a common ancestor is found. Genesis is always the
// shared ancestor of last resort: the walk never reports a fork point
// below genesis.
func FindFork(r blockReader, currentTipHash, candidateTipHash molecule.Byte32) (*ForkChanges, error) {
	currentHeader, ok := r.GetBlockHeader(currentTipHash)
	if !ok {
		return nil, errBlockNotFound(currentTipHash)
	}
	candidateHeader, ok := r.GetBlockHeader(candidateTipHash)
	if !ok {
		return nil, errBlockNotFound(candidateTipHash)
	}

	var detachedChain, attachedChain []molecule.Block

	curHash, curNum := currentTipHash, currentHeader.Number
	canHash, canNum := candidateTipHash, candidateHeader.Number

	for curHash != canHash {
		if curNum > canNum {
			b, ok := r.GetBlock(curHash)
			if !ok {
				return nil, errBlockNotFound(curHash)
			}
			detachedChain = append(detachedChain, b)
			curHash = b.Header.ParentHash
			curNum--
			continue
		}
		if canNum > curNum {
			b, ok := r.GetBlock(canHash)
			if !ok {
				return nil, errBlockNotFound(canHash)
			}
			attachedChain = append(attachedChain, b)
			canHash = b.Header.ParentHash
			canNum--
			continue
		}
		// Equal numbers, different hashes: both step back one.
		cb, ok := r.GetBlock(curHash)
		if !ok {
			return nil, errBlockNotFound(curHash)
		}
		ab, ok := r.GetBlock(canHash)
		if !ok {
			return nil, errBlockNotFound(canHash)
		}
		detachedChain = append(detachedChain, cb)
		attachedChain = append(attachedChain, ab)
		curHash, canHash = cb.Header.ParentHash, ab.Header.ParentHash
		curNum--
		canNum--
	}

	fc := &ForkChanges{
		Detached: reverseBlocks(detachedChain),
		Attached: reverseBlocks(attachedChain),
	}
	for _, b := range fc.Detached {
		fc.DetachedProposalIds = append(fc.DetachedProposalIds, collectProposalIds(b)...)
	}
	for _, b := range fc.Attached {
		fc.AttachedProposalIds = append(fc.AttachedProposalIds, collectProposalIds(b)...)
	}
	return fc, nil
}

func collectProposalIds(b molecule.Block) []molecule.ProposalShortId {
	ids := append([]molecule.ProposalShortId(nil), b.Proposals...)
	for _, u := range b.Uncles {
		ids = append(ids, u.Proposals...)
	}
	return ids
}

func reverseBlocks(bs []molecule.Block) []molecule.Block {
	out := make([]molecule.Block, len(bs))
	for i, b := range bs {
		out[len(bs)-1-i] = b
	}
	return out
}

// ShouldSwitch implements the fork-choice tie-break rule: strictly greater total_difficulty wins; on a tie, earlier
// received_at_ms wins; on a further tie, lexicographically smaller
// block-hash wins.
func ShouldSwitch(candidateDiff, currentDiff *big.Int, candidateReceivedAtMs, currentReceivedAtMs int64, candidateHash, currentHash molecule.Byte32) bool {
	if cmp := candidateDiff.Cmp(currentDiff); cmp != 0 {
		return cmp > 0
	}
	if candidateReceivedAtMs != currentReceivedAtMs {
		return candidateReceivedAtMs < currentReceivedAtMs
	}
	return candidateHash.Cmp(currentHash) < 0
}

type notFoundError struct{ hash molecule.Byte32 }

func (e notFoundError) Error() string { return "chain: block not found: " + e.hash.String() }

func errBlockNotFound(hash molecule.Byte32) error { return notFoundError{hash} }
