package txpool

import (
	"fmt"
	"sort"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// links records, for one in-pool transaction, which other in-pool
// transactions it depends on (parents) and which depend on it
// (children).
type links struct {
	parents  map[molecule.ProposalShortId]struct{}
	children map[molecule.ProposalShortId]struct{}
}

func newLinks() *links {
	return &links{parents: map[molecule.ProposalShortId]struct{}{}, children: map[molecule.ProposalShortId]struct{}{}}
}

// ErrExceededMaxAncestors is returned when inserting an entry would push
// its ancestor count past max_ancestors_count.
var ErrExceededMaxAncestors = fmt.Errorf("ExceededMaximumAncestorsCount")

// SortedTxMap is one sub-pool: an ancestor-aware fee-rate index plus the
// dependency graph needed to propagate ancestor aggregates.
type SortedTxMap struct {
	entries           map[molecule.ProposalShortId]TxEntry
	edges             map[molecule.ProposalShortId]*links
	maxAncestorsCount uint64
}

func NewSortedTxMap(maxAncestorsCount uint64) *SortedTxMap {
	return &SortedTxMap{
		entries:           map[molecule.ProposalShortId]TxEntry{},
		edges:             map[molecule.ProposalShortId]*links{},
		maxAncestorsCount: maxAncestorsCount,
	}
}

func (m *SortedTxMap) Len() int { return len(m.entries) }

func (m *SortedTxMap) Get(id molecule.ProposalShortId) (TxEntry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

func (m *SortedTxMap) Contains(id molecule.ProposalShortId) bool {
	_, ok := m.entries[id]
	return ok
}

// OutPointOwner reports the id of the in-pool transaction that created
// this OutPoint, if any; used to find in-pool parents.
func (m *SortedTxMap) OutPointOwner(op molecule.OutPoint) (molecule.ProposalShortId, bool) {
	for id, e := range m.entries {
		if op.TxHash == e.Tx.TxHash() {
			return id, true
		}
	}
	return molecule.ProposalShortId{}, false
}

// inPoolParents scans an entry's inputs and cell-deps for OutPoints
// created by other in-pool transactions.
func (m *SortedTxMap) inPoolParents(tx molecule.Transaction) map[molecule.ProposalShortId]struct{} {
	parents := map[molecule.ProposalShortId]struct{}{}
	consider := func(op molecule.OutPoint) {
		if id, ok := m.OutPointOwner(op); ok {
			parents[id] = struct{}{}
		}
	}
	for _, in := range tx.Inputs {
		consider(in.PreviousOutput)
	}
	for _, d := range tx.CellDeps {
		consider(d.OutPoint)
	}
	return parents
}

// Add inserts an entry, aggregating ancestors_* from its in-pool
// parents, enforcing the ancestor-count bound, and wiring edges. RBF
// conflict detection is by shared OutPoint and lives in rbf.go, not
// here.
func (m *SortedTxMap) Add(tx molecule.Transaction, fee, cycles uint64) (TxEntry, error) {
	vbytes := txVBytes(tx)
	parents := m.inPoolParents(tx)

	var ancestorsFee, ancestorsVBytes, ancestorsCount uint64
	seen := map[molecule.ProposalShortId]struct{}{}
	var walk func(id molecule.ProposalShortId)
	walk = func(id molecule.ProposalShortId) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		pe, ok := m.entries[id]
		if !ok {
			return
		}
		ancestorsFee += pe.Fee
		ancestorsVBytes += pe.VBytes
		ancestorsCount++
		if e, ok := m.edges[id]; ok {
			for p := range e.parents {
				walk(p)
			}
		}
	}
	for p := range parents {
		walk(p)
	}
	if ancestorsCount+1 > m.maxAncestorsCount {
		return TxEntry{}, ErrExceededMaxAncestors
	}

	entry := TxEntry{
		Tx:              tx,
		Fee:             fee,
		VBytes:          vbytes,
		Cycles:          cycles,
		AncestorsFee:    ancestorsFee + fee,
		AncestorsVBytes: ancestorsVBytes + vbytes,
		AncestorsCount:  ancestorsCount,
	}
	id := entry.id()
	m.entries[id] = entry
	e := newLinks()
	e.parents = parents
	m.edges[id] = e
	for p := range parents {
		if pe, ok := m.edges[p]; ok {
			pe.children[id] = struct{}{}
		}
	}
	return entry, nil
}

// Remove deletes one entry without touching its descendants, propagating
// the ancestor-aggregate subtraction to every descendant and re-sorting
// them.
func (m *SortedTxMap) Remove(id molecule.ProposalShortId) (TxEntry, bool) {
	entry, ok := m.entries[id]
	if !ok {
		return TxEntry{}, false
	}
	descendants := m.Descendants(id)
	e := m.edges[id]
	delete(m.entries, id)
	delete(m.edges, id)
	for p := range parentsOf(e) {
		if pe, ok := m.edges[p]; ok {
			delete(pe.children, id)
		}
	}
	for c := range childrenOf(e) {
		if ce, ok := m.edges[c]; ok {
			delete(ce.parents, id)
		}
	}
	for _, d := range descendants {
		if de, ok := m.entries[d]; ok {
			de.AncestorsFee -= entry.Fee
			de.AncestorsVBytes -= entry.VBytes
			if de.AncestorsCount > 0 {
				de.AncestorsCount--
			}
			m.entries[d] = de
		}
	}
	return entry, true
}

func childrenOf(e *links) map[molecule.ProposalShortId]struct{} {
	if e == nil {
		return nil
	}
	return e.children
}

func parentsOf(e *links) map[molecule.ProposalShortId]struct{} {
	if e == nil {
		return nil
	}
	return e.parents
}

// RemoveWithDescendants removes an entry and every transitive child
// (BFS over links.children), used for conflict resolution and commit.
func (m *SortedTxMap) RemoveWithDescendants(id molecule.ProposalShortId) []TxEntry {
	var removed []TxEntry
	queue := []molecule.ProposalShortId{id}
	visited := map[molecule.ProposalShortId]struct{}{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		entry, ok := m.entries[cur]
		if !ok {
			continue
		}
		if e, ok := m.edges[cur]; ok {
			for c := range e.children {
				queue = append(queue, c)
				if ce, ok := m.edges[c]; ok {
					delete(ce.parents, cur)
				}
			}
			// Detach from surviving parents so no survivor keeps a
			// child link to a removed id.
			for p := range e.parents {
				if pe, ok := m.edges[p]; ok {
					delete(pe.children, cur)
				}
			}
		}
		delete(m.entries, cur)
		delete(m.edges, cur)
		removed = append(removed, entry)
	}
	return removed
}

// Descendants returns every transitive child of id, without removing
// anything (used by RBF's conflict-set computation).
func (m *SortedTxMap) Descendants(id molecule.ProposalShortId) []molecule.ProposalShortId {
	var out []molecule.ProposalShortId
	queue := []molecule.ProposalShortId{id}
	visited := map[molecule.ProposalShortId]struct{}{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		if e, ok := m.edges[cur]; ok {
			for c := range e.children {
				out = append(out, c)
				queue = append(queue, c)
			}
		}
	}
	return out
}

// SortedIds returns ids ordered highest-effective-fee-rate first.
// Rebuilt on read rather than kept as a live ordered set:
// simpler, and the pool sizes this targets (thousands of entries) make
// an O(n log n) sort per read acceptable.
func (m *SortedTxMap) SortedIds() []molecule.ProposalShortId {
	ids := make([]molecule.ProposalShortId, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return sortKeyLess(m.entries[ids[j]], m.entries[ids[i]]) // descending
	})
	return ids
}

// Cell reports the CellProvider status of an OutPoint
// against this sub-pool alone: Live if some in-pool tx created it and it
// hasn't also been spent by another in-pool tx, Dead if spent in-pool,
// Unknown otherwise.
func (m *SortedTxMap) Cell(op molecule.OutPoint) CellStatus {
	return m.cellExcluding(op, nil)
}

// cellExcluding is Cell with a set of entry ids whose spends and outputs
// are ignored, used by RBF fee computation, where the conflicting
// entries and their descendants are about to be evicted and must not
// count as spenders.
func (m *SortedTxMap) cellExcluding(op molecule.OutPoint, exclude map[molecule.ProposalShortId]struct{}) CellStatus {
	created := false
	for id, e := range m.entries {
		if _, skip := exclude[id]; skip {
			continue
		}
		if e.Tx.TxHash() == op.TxHash && int(op.Index) < len(e.Tx.Outputs) {
			created = true
		}
	}
	for id, e := range m.entries {
		if _, skip := exclude[id]; skip {
			continue
		}
		for _, in := range e.Tx.Inputs {
			if in.PreviousOutput == op {
				return CellDead
			}
		}
	}
	if created {
		return CellLive
	}
	return CellUnknown
}
