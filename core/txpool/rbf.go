package txpool

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// RBFRejected carries the reason text verbatim; RPC callers surface it
// unchanged alongside the original tx hash.
type RBFRejected struct{ Reason string }

func (e *RBFRejected) Error() string { return e.Reason }

func rbfReject(format string, args ...interface{}) *RBFRejected {
	return &RBFRejected{Reason: fmt.Sprintf(format, args...)}
}

// feeRate is fee/vbytes expressed as the cross-multiplication-friendly
// pair (fee, vbytes); comparisons avoid division throughout this file.
type feeRate struct {
	fee    uint64
	vbytes uint64
}

// less reports whether a's rate is strictly less than b's: a.fee/a.vbytes < b.fee/b.vbytes.
func (a feeRate) less(b feeRate) bool {
	return a.fee*b.vbytes < b.fee*a.vbytes
}

// conflictsOf returns the ids of every Pending entry that shares at
// least one input OutPoint with candidate.
func conflictsOf(pending *SortedTxMap, candidate molecule.Transaction) []molecule.ProposalShortId {
	spent := map[molecule.OutPoint]struct{}{}
	for _, in := range candidate.Inputs {
		spent[in.PreviousOutput] = struct{}{}
	}
	var conflicts []molecule.ProposalShortId
	for id, e := range pending.entries {
		for _, in := range e.Tx.Inputs {
			if _, ok := spent[in.PreviousOutput]; ok {
				conflicts = append(conflicts, id)
				break
			}
		}
	}
	return conflicts
}

// EvaluateRBF checks the six replacement conditions for a candidate
// replacement transaction N against its conflicting set {C_i} in
// Pending. proposed is the Proposed sub-pool, consulted for condition 5
// (replacing a proposed tx is forbidden). minRBFRate is the
// pool's configured floor.
func EvaluateRBF(pending *SortedTxMap, proposed *SortedTxMap, candidate molecule.Transaction, candidateFee uint64, onChainInputs func(op molecule.OutPoint) bool, minRBFRate uint64) ([]molecule.ProposalShortId, error) {
	conflicts := conflictsOf(pending, candidate)
	if len(conflicts) == 0 {
		return nil, nil // not a replacement; ordinary acceptance path applies
	}

	candidateVBytes := txVBytes(candidate)
	candidateRate := feeRate{fee: candidateFee, vbytes: candidateVBytes}

	// Condition 1: N's fee rate strictly exceeds every C_i's and the
	// pool floor.
	minRateRate := feeRate{fee: minRBFRate, vbytes: 1}
	if !minRateRate.less(candidateRate) {
		return nil, rbfReject("replacement fee rate does not exceed the pool minimum RBF rate")
	}
	for _, cid := range conflicts {
		c := pending.entries[cid]
		cRate := feeRate{fee: c.Fee, vbytes: c.VBytes}
		if !cRate.less(candidateRate) {
			return nil, rbfReject("replacement fee rate does not exceed conflicting tx %s", cid)
		}
	}

	// Build the full eviction set: conflicts plus every descendant.
	evictionSet := map[molecule.ProposalShortId]struct{}{}
	for _, cid := range conflicts {
		evictionSet[cid] = struct{}{}
		for _, d := range pending.Descendants(cid) {
			evictionSet[d] = struct{}{}
		}
	}

	// Condition 5: every evicted entry must be in Pending, not Proposed.
	for id := range evictionSet {
		if proposed.Contains(id) {
			return nil, rbfReject("all conflict Txs should be in Pending status")
		}
	}

	// Condition 2: every unconfirmed input of N must be an output of an
	// already-in-pool tx (i.e. not a brand-new unconfirmed input).
	for _, in := range candidate.Inputs {
		if onChainInputs(in.PreviousOutput) {
			continue
		}
		if _, ok := pending.OutPointOwner(in.PreviousOutput); !ok {
			return nil, rbfReject("new Tx contains unconfirmed inputs")
		}
	}

	// Condition 3: N must not spend an output of any descendant of any C_i.
	for _, in := range candidate.Inputs {
		for id := range evictionSet {
			e, ok := pending.entries[id]
			if !ok {
				continue
			}
			if in.PreviousOutput.TxHash == e.Tx.TxHash() {
				return nil, rbfReject("new Tx contains inputs in descendants of to be replaced Tx")
			}
		}
	}

	// Condition 4: total eviction set size bound.
	if len(evictionSet) > 100 {
		return nil, rbfReject("Tx conflict too many txs")
	}

	// Condition 6: N's fee must cover the evicted fees plus its own
	// relay cost at the floor rate.
	var evictedFee uint64
	for id := range evictionSet {
		evictedFee += pending.entries[id].Fee
	}
	// min_rbf_rate is an integer shannons/vbyte rate, so the relay-cost
	// floor is already integral and no ceiling division is needed.
	minRelayCost := minRBFRate * candidateVBytes
	required := evictedFee + minRelayCost
	if candidateFee < required {
		return nil, rbfReject("Tx's current fee is %d, expect it to >= %d to replace old txs", candidateFee, required)
	}

	ids := make([]molecule.ProposalShortId, 0, len(evictionSet))
	for id := range evictionSet {
		ids = append(ids, id)
	}
	return ids, nil
}
