package txpool

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/sirupsen/logrus"
)

// Rejection records one transaction's eviction, for callers that surface
// pool activity to logs/metrics/RPC.
type Rejection struct {
	Id     molecule.ProposalShortId
	Reason string
}

// TxPool holds the three sub-pools plus the committed-tx hash cache.
// total_tx_size/total_tx_cycles are maintained as the exact sum over
// all three sub-pools.
type TxPool struct {
	mu sync.RWMutex

	pending  *SortedTxMap
	gap      *SortedTxMap
	proposed *SortedTxMap

	committedCache *lru.Cache[molecule.ProposalShortId, molecule.Byte32]

	snapHandle   *store.SnapshotHandle
	minRBFRate   uint64
	maxAncestors uint64

	totalSize   uint64
	totalCycles uint64

	log *logrus.Entry
}

func NewTxPool(snapHandle *store.SnapshotHandle, maxAncestors uint64, minRBFRate uint64, committedCacheSize int) (*TxPool, error) {
	cache, err := lru.New[molecule.ProposalShortId, molecule.Byte32](committedCacheSize)
	if err != nil {
		return nil, err
	}
	return &TxPool{
		pending:        NewSortedTxMap(maxAncestors),
		gap:            NewSortedTxMap(maxAncestors),
		proposed:       NewSortedTxMap(maxAncestors),
		committedCache: cache,
		snapHandle:     snapHandle,
		minRBFRate:     minRBFRate,
		maxAncestors:   maxAncestors,
		log:            logrus.WithField("component", "txpool"),
	}, nil
}

func (p *TxPool) TotalSize() uint64   { p.mu.RLock(); defer p.mu.RUnlock(); return p.totalSize }
func (p *TxPool) TotalCycles() uint64 { p.mu.RLock(); defer p.mu.RUnlock(); return p.totalCycles }

func (p *TxPool) snapshotLive(op molecule.OutPoint) (uint64, bool) {
	snap := p.snapHandle.Load()
	if snap == nil {
		return 0, false
	}
	cm, ok := snap.GetCellMeta(op)
	if !ok {
		return 0, false
	}
	return cm.Output.Capacity, true
}

func (p *TxPool) resolver() *Resolver {
	return &Resolver{Pending: p.pending, Gap: p.gap, Proposed: p.proposed, SnapshotLive: p.snapshotLive}
}

// proposalDestination decides which sub-pool a freshly resolved
// transaction belongs in, per the current snapshot's (set, gap) view:
// set -> Proposed, gap -> Gap, neither -> Pending.
func (p *TxPool) proposalDestination(id molecule.ProposalShortId) *SortedTxMap {
	snap := p.snapHandle.Load()
	if snap == nil {
		return p.pending
	}
	view := snap.Proposals()
	if _, ok := view.Set[id]; ok {
		return p.proposed
	}
	if _, ok := view.Gap[id]; ok {
		return p.gap
	}
	return p.pending
}

func (p *TxPool) locate(id molecule.ProposalShortId) (*SortedTxMap, TxEntry, bool) {
	for _, sp := range []*SortedTxMap{p.pending, p.gap, p.proposed} {
		if e, ok := sp.Get(id); ok {
			return sp, e, true
		}
	}
	return nil, TxEntry{}, false
}

// SubmitTx resolves tx against the Pending→Gap→Proposed→Snapshot overlay,
// computes its fee, runs RBF if it conflicts with an existing Pending
// entry, and inserts it into the sub-pool its ProposalShortId currently
// belongs to.
func (p *TxPool) SubmitTx(tx molecule.Transaction) (TxEntry, []molecule.ProposalShortId, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := tx.ProposalShortId()
	if _, _, ok := p.locate(id); ok {
		return TxEntry{}, nil, rejectf("transaction already in pool")
	}

	// Conflict detection precedes fee computation: for an RBF candidate
	// the shared inputs are spent by the to-be-evicted entries, so the
	// resolver must ignore those spends or the fee check reports a dead
	// cell before RBF ever runs.
	conflicts := conflictsOf(p.pending, tx)
	resolver := p.resolver()
	if len(conflicts) > 0 {
		exclude := map[molecule.ProposalShortId]struct{}{}
		for _, cid := range conflicts {
			exclude[cid] = struct{}{}
			for _, d := range p.pending.Descendants(cid) {
				exclude[d] = struct{}{}
			}
		}
		resolver.Exclude = exclude
	}
	fee, err := resolver.ComputeFee(tx)
	if err != nil {
		return TxEntry{}, nil, err
	}

	var evicted []molecule.ProposalShortId
	if len(conflicts) > 0 {
		evicted, err = EvaluateRBF(p.pending, p.proposed, tx, fee, p.isOnChainInput, p.minRBFRate)
		if err != nil {
			return TxEntry{}, nil, err
		}
		for _, eid := range evicted {
			if removedEntry, ok := p.pending.Remove(eid); ok {
				p.adjustTotals(-int64(removedEntry.VBytes), -int64(removedEntry.Cycles))
			}
		}
	}

	dest := p.proposalDestination(id)
	entry, err := dest.Add(tx, fee, 0)
	if err != nil {
		return TxEntry{}, evicted, err
	}
	p.adjustTotals(int64(entry.VBytes), int64(entry.Cycles))
	return entry, evicted, nil
}

func (p *TxPool) isOnChainInput(op molecule.OutPoint) bool {
	_, ok := p.snapshotLive(op)
	return ok
}

func (p *TxPool) adjustTotals(size, cycles int64) {
	p.totalSize = addClamped(p.totalSize, size)
	p.totalCycles = addClamped(p.totalCycles, cycles)
}

func addClamped(base uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > base {
		return 0
	}
	if delta < 0 {
		return base - uint64(-delta)
	}
	return base + uint64(delta)
}

// OnBlockAttached applies the attach-side lifecycle after the chain
// service publishes a new snapshot: re-scans Pending and Gap against
// that snapshot's proposal-window view (Set -> Proposed, Gap -> Gap,
// revalidating on each move), and removes Proposed transactions
// committed or double-spent by the block (along with their
// descendants). An id announced by the attached block itself is not
// promotable yet: with far >= near >= 2 it enters the window only
// several blocks later, so promotion keys off the window view, never
// off the block's own proposal list.
func (p *TxPool) OnBlockAttached(committed []molecule.Transaction) []Rejection {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rejections []Rejection

	var view store.ProposalsView
	if snap := p.snapHandle.Load(); snap != nil {
		view = snap.Proposals()
	}

	move := func(from, to *SortedTxMap, id molecule.ProposalShortId) {
		entry, ok := from.Remove(id)
		if !ok {
			return
		}
		p.adjustTotals(-int64(entry.VBytes), -int64(entry.Cycles))
		if _, err := p.resolver().ComputeFee(entry.Tx); err != nil {
			rejections = append(rejections, Rejection{Id: id, Reason: err.Error()})
			return
		}
		if moved, err := to.Add(entry.Tx, entry.Fee, entry.Cycles); err == nil {
			p.adjustTotals(int64(moved.VBytes), int64(moved.Cycles))
		} else {
			rejections = append(rejections, Rejection{Id: id, Reason: err.Error()})
		}
	}

	for id := range snapshotEntries(p.pending) {
		if _, ok := view.Set[id]; ok {
			move(p.pending, p.proposed, id)
			continue
		}
		if _, ok := view.Gap[id]; ok {
			move(p.pending, p.gap, id)
		}
	}
	for id := range snapshotEntries(p.gap) {
		if _, ok := view.Set[id]; ok {
			move(p.gap, p.proposed, id)
		}
	}

	spent := map[molecule.OutPoint]struct{}{}
	for i, tx := range committed {
		if i == 0 {
			continue // cellbase
		}
		for _, in := range tx.Inputs {
			spent[in.PreviousOutput] = struct{}{}
		}
		txID := tx.ProposalShortId()
		if entry, ok := p.proposed.Remove(txID); ok {
			p.adjustTotals(-int64(entry.VBytes), -int64(entry.Cycles))
			p.committedCache.Add(txID, tx.TxHash())
		}
	}

	for id, e := range snapshotEntries(p.proposed) {
		for _, in := range e.Tx.Inputs {
			if _, consumed := spent[in.PreviousOutput]; consumed {
				for _, removed := range p.proposed.RemoveWithDescendants(id) {
					p.adjustTotals(-int64(removed.VBytes), -int64(removed.Cycles))
					rejections = append(rejections, Rejection{Id: removed.id(), Reason: "Resolve(DeadCell)"})
				}
				break
			}
		}
	}

	return rejections
}

// OnBlockDetached applies the detach-side lifecycle: a
// reorg's losing-side committed transactions are re-admitted
// best-effort into Proposed.
func (p *TxPool) OnBlockDetached(detachedCommitted []molecule.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, tx := range detachedCommitted {
		if i == 0 {
			continue // cellbase
		}
		fee, err := p.resolver().ComputeFee(tx)
		if err != nil {
			continue // no longer resolvable against the new chain; dropped
		}
		if entry, err := p.proposed.Add(tx, fee, 0); err == nil {
			p.adjustTotals(int64(entry.VBytes), int64(entry.Cycles))
		}
	}
}

// ExpireProposals handles proposal-id expiry: ids
// that fell to or below tip-far move back to Pending with ancestors_* reset.
func (p *TxPool) ExpireProposals(expiredIds []molecule.ProposalShortId) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range expiredIds {
		if entry, ok := p.gap.Remove(id); ok {
			p.reinsertAsPending(entry)
			continue
		}
		if entry, ok := p.proposed.Remove(id); ok {
			p.reinsertAsPending(entry)
		}
	}
}

func (p *TxPool) reinsertAsPending(entry TxEntry) {
	if _, err := p.pending.Add(entry.Tx, entry.Fee, entry.Cycles); err != nil {
		p.log.WithError(err).Warn("dropped expired proposal while re-admitting to pending")
		p.adjustTotals(-int64(entry.VBytes), -int64(entry.Cycles))
	}
}

// snapshotEntries copies a sub-pool's current entries so callers can
// mutate the map (via Remove/RemoveWithDescendants) while iterating.
func snapshotEntries(m *SortedTxMap) map[molecule.ProposalShortId]TxEntry {
	out := make(map[molecule.ProposalShortId]TxEntry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
