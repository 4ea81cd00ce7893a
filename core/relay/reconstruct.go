package relay

import "github.com/nervosnetwork/ckb-go/core/molecule"

// TxIndex answers short_id lookups against the pool of candidate
// transactions (mempool proposed ∪ recently committed cache). A
// short_id with more than one distinct witness hash
// mapping to it is a collision.
type TxIndex struct {
	k0, k1 uint64
	byID   map[ShortID][]molecule.Transaction
}

func NewTxIndex(k0, k1 uint64, candidates []molecule.Transaction) *TxIndex {
	idx := &TxIndex{k0: k0, k1: k1, byID: make(map[ShortID][]molecule.Transaction)}
	for _, tx := range candidates {
		wh := tx.WitnessHash()
		id := ComputeShortID(k0, k1, wh)
		dup := false
		for _, existing := range idx.byID[id] {
			if existing.WitnessHash() == wh {
				dup = true
				break
			}
		}
		if !dup {
			idx.byID[id] = append(idx.byID[id], tx)
		}
	}
	return idx
}

// Lookup reports found (any candidate mapped to id) and collision (more
// than one distinct transaction mapped to id).
func (idx *TxIndex) Lookup(id ShortID) (tx molecule.Transaction, found, collision bool) {
	matches := idx.byID[id]
	if len(matches) == 0 {
		return molecule.Transaction{}, false, false
	}
	if len(matches) > 1 {
		return molecule.Transaction{}, true, true
	}
	return matches[0], true, false
}

// ReconstructOutcome is the tagged result of one reconstruction attempt.
type ReconstructOutcome int

const (
	OutcomeComplete ReconstructOutcome = iota
	OutcomeAwaitingTransactions
	OutcomeCollision
	OutcomeInvalid
)

// ReconstructResult carries the outcome plus whatever Reconstruct could
// determine: the assembled block on Complete, or the indexes that need a
// GetBlockTransactions round-trip otherwise.
type ReconstructResult struct {
	Outcome          ReconstructOutcome
	Block            molecule.Block
	MissingIndexes   []uint32
	CollidingIndexes []uint32
}

// Reconstruct assembles a block body from short ids: for each position,
// resolve via idx; prefilled positions are taken verbatim. No misses and
// no collisions with a matching transactions_root yields Complete;
// collisions or misses ask the caller to fetch more data.
func Reconstruct(cb CompactBlock, idx *TxIndex) ReconstructResult {
	total := len(cb.Prefilled) + len(cb.ShortIds)
	slots := make([]*molecule.Transaction, total)
	for _, p := range cb.Prefilled {
		if int(p.Index) >= total {
			return ReconstructResult{Outcome: OutcomeInvalid}
		}
		tx := p.Tx
		slots[p.Index] = &tx
	}

	var missing, colliding []uint32
	shortIdx := 0
	for i := 0; i < total; i++ {
		if slots[i] != nil {
			continue
		}
		id := cb.ShortIds[shortIdx]
		shortIdx++
		tx, found, collision := idx.Lookup(id)
		switch {
		case collision:
			colliding = append(colliding, uint32(i))
		case !found:
			missing = append(missing, uint32(i))
		default:
			t := tx
			slots[i] = &t
		}
	}

	if len(colliding) > 0 {
		return ReconstructResult{Outcome: OutcomeCollision, CollidingIndexes: colliding}
	}
	if len(missing) > 0 {
		return ReconstructResult{Outcome: OutcomeAwaitingTransactions, MissingIndexes: missing}
	}

	txs := make([]molecule.Transaction, total)
	for i, s := range slots {
		txs[i] = *s
	}
	root := TransactionsRoot(txs)
	if root != cb.Header.TransactionsRoot {
		return ReconstructResult{Outcome: OutcomeInvalid}
	}
	return ReconstructResult{Outcome: OutcomeComplete, Block: molecule.Block{
		Header:       cb.Header,
		Uncles:       cb.Uncles,
		Transactions: txs,
		Proposals:    cb.Proposals,
	}}
}

// WithExtra returns an index that also knows about extra transactions,
// for merging a GetBlockTransactions response into the candidate set
// before retrying Reconstruct.
func (idx *TxIndex) WithExtra(extra []molecule.Transaction) *TxIndex {
	merged := &TxIndex{k0: idx.k0, k1: idx.k1, byID: make(map[ShortID][]molecule.Transaction, len(idx.byID))}
	for id, txs := range idx.byID {
		merged.byID[id] = append([]molecule.Transaction{}, txs...)
	}
	for _, tx := range extra {
		id := ComputeShortID(idx.k0, idx.k1, tx.WitnessHash())
		dup := false
		for _, existing := range merged.byID[id] {
			if existing.TxHash() == tx.TxHash() {
				dup = true
				break
			}
		}
		if !dup {
			merged.byID[id] = append(merged.byID[id], tx)
		}
	}
	return merged
}
