package txpool

import "github.com/nervosnetwork/ckb-go/core/molecule"

// CommitTxsScanner walks the Proposed sub-pool from highest effective
// fee rate downward, greedily admitting whole ancestor packages while
// respecting block max_cycles/max_size caps. A partially
// fitting package is skipped entirely and the scan continues; this keeps
// the result deterministic for a given pool state and caps.
type CommitTxsScanner struct {
	proposed *SortedTxMap
}

func NewCommitTxsScanner(p *TxPool) *CommitTxsScanner {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &CommitTxsScanner{proposed: p.proposed}
}

// Scan returns the transactions to include in a block template, in
// ancestor-before-descendant order, without exceeding maxCycles or
// maxBytes.
func (s *CommitTxsScanner) Scan(maxCycles, maxBytes uint64) []molecule.Transaction {
	var (
		result     []molecule.Transaction
		usedCycles uint64
		usedBytes  uint64
		included   = map[molecule.ProposalShortId]struct{}{}
	)

	for _, id := range s.proposed.SortedIds() {
		if _, ok := included[id]; ok {
			continue
		}
		pkg := s.ancestorPackage(id, included)
		var pkgCycles, pkgBytes uint64
		for _, e := range pkg {
			pkgCycles += e.Cycles
			pkgBytes += e.VBytes
		}
		if usedCycles+pkgCycles > maxCycles || usedBytes+pkgBytes > maxBytes {
			continue // partially fitting package: skip entirely, keep scanning
		}
		for _, e := range pkg {
			included[e.id()] = struct{}{}
			result = append(result, e.Tx)
		}
		usedCycles += pkgCycles
		usedBytes += pkgBytes
	}
	return result
}

// ancestorPackage returns id's full ancestor closure (ancestors first,
// then id itself), skipping any already in the included set so a shared
// ancestor isn't emitted twice.
func (s *CommitTxsScanner) ancestorPackage(id molecule.ProposalShortId, included map[molecule.ProposalShortId]struct{}) []TxEntry {
	var ordered []TxEntry
	visited := map[molecule.ProposalShortId]struct{}{}
	var visit func(cur molecule.ProposalShortId)
	visit = func(cur molecule.ProposalShortId) {
		if _, ok := visited[cur]; ok {
			return
		}
		visited[cur] = struct{}{}
		e, ok := s.proposed.Get(cur)
		if !ok {
			return
		}
		if edges, ok := s.proposed.edges[cur]; ok {
			for parent := range edges.parents {
				if _, already := included[parent]; !already {
					visit(parent)
				}
			}
		}
		ordered = append(ordered, e)
	}
	visit(id)
	return ordered
}
