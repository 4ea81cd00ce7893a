package relay

import (
	"github.com/nervosnetwork/ckb-go/core/chain"
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/sync"
)

// MaxAncestryLookback bounds how far behind the current tip a compact
// block's header may sit before it is dropped as stale rather than
// reconstructed.
const MaxAncestryLookback = 1800

// CompactBlockOutcome is the tagged result of processing one received
// CompactBlock through the receiver-side state machine.
type CompactBlockOutcome int

const (
	// CompactBlockAccepted means reconstruction produced a matching
	// transactions_root; Block is ready to submit to the chain service.
	CompactBlockAccepted CompactBlockOutcome = iota
	// CompactBlockDuplicate means BlockStatus already knows this hash as
	// invalid, stored, or received (step 1); the message is dropped.
	CompactBlockDuplicate
	// CompactBlockRequiresParent means the parent header is unknown
	// (step 2); the caller should send GetHeaders for the current tip.
	CompactBlockRequiresParent
	// CompactBlockIsStaled means the block is more than
	// MaxAncestryLookback behind the current tip (step 3).
	CompactBlockIsStaled
	// CompactBlockHeaderInvalid means the contextless header check
	// failed (step 4); the caller should mark the hash BLOCK_INVALID.
	CompactBlockHeaderInvalid
	// CompactBlockMeetsShortIdsCollision means two candidate
	// transactions share a short_id (step 5); the caller should request
	// the colliding indexes.
	CompactBlockMeetsShortIdsCollision
	// CompactBlockRequiresFreshTransactions means some short_ids didn't
	// resolve against the candidate set (step 5); the caller should
	// request the missing indexes plus every uncle index and cache the
	// partial reconstruction.
	CompactBlockRequiresFreshTransactions
	// CompactBlockHasUnmatchedTransactionRootWithReconstructedBlock
	// means a fully reconstructed body's transactions_root doesn't match
	// the header (step 6); the caller should ban the peer and mark the
	// hash BLOCK_INVALID.
	CompactBlockHasUnmatchedTransactionRootWithReconstructedBlock
)

// ChainView is the read-only chain state ProcessCompactBlock consults:
// block status (step 1), parent lookup (step 2), and tip height for the
// staleness check (step 3).
type ChainView interface {
	BlockStatus(hash molecule.Byte32) sync.BlockStatus
	GetBlockHeader(hash molecule.Byte32) (molecule.Header, bool)
	TipNumber() uint64
}

// ProcessResult carries the outcome plus whatever follow-up data the
// caller needs: the reconstructed block on Accepted, or the indexes a
// GetBlockTransactions round trip should carry otherwise.
type ProcessResult struct {
	Outcome             CompactBlockOutcome
	Block               molecule.Block
	MissingTxIndexes    []uint32
	MissingUncleIndexes []uint32
	CollidingIndexes    []uint32
}

// ProcessCompactBlock runs the receiver-side checks in order against a
// freshly received CompactBlock. candidates is the
// short_id lookup built from the mempool-proposed ∪ recently-committed
// transaction set (NewTxIndex); on CompactBlockRequiresFreshTransactions
// the caller retries with TxIndex.WithExtra once the peer's
// BlockTransactions response arrives.
func ProcessCompactBlock(view ChainView, headerVerifier chain.HeaderVerifier, cb CompactBlock, candidates *TxIndex) ProcessResult {
	hash := cb.Header.BlockHash()

	if st := view.BlockStatus(hash); st.Has(sync.BlockStatusInvalid) || st.Has(sync.BlockStatusStored) || st.Has(sync.BlockStatusReceived) {
		return ProcessResult{Outcome: CompactBlockDuplicate}
	}

	if _, ok := view.GetBlockHeader(cb.Header.ParentHash); !ok {
		return ProcessResult{Outcome: CompactBlockRequiresParent}
	}

	if tip := view.TipNumber(); tip > cb.Header.Number && tip-cb.Header.Number > MaxAncestryLookback {
		return ProcessResult{Outcome: CompactBlockIsStaled}
	}

	if err := headerVerifier.VerifyHeader(cb.Header); err != nil {
		return ProcessResult{Outcome: CompactBlockHeaderInvalid}
	}

	recon := Reconstruct(cb, candidates)
	switch recon.Outcome {
	case OutcomeCollision:
		return ProcessResult{
			Outcome:          CompactBlockMeetsShortIdsCollision,
			CollidingIndexes: recon.CollidingIndexes,
		}
	case OutcomeAwaitingTransactions:
		return ProcessResult{
			Outcome:             CompactBlockRequiresFreshTransactions,
			MissingTxIndexes:    recon.MissingIndexes,
			MissingUncleIndexes: cb.AllUncleIndexes(),
		}
	case OutcomeInvalid:
		return ProcessResult{Outcome: CompactBlockHasUnmatchedTransactionRootWithReconstructedBlock}
	default:
		return ProcessResult{Outcome: CompactBlockAccepted, Block: recon.Block}
	}
}
