package txpool

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// CellStatus is the three-state answer a cell provider gives for an
// OutPoint.
type CellStatus int

const (
	CellUnknown CellStatus = iota
	CellLive
	CellDead
)

// ErrResolveUnknownCell and ErrResolveDeadCell name the two Resolve
// failure shapes: an input OutPoint that no sub-pool created and the
// snapshot does not hold live (this includes a cell already spent on
// chain), and one that an in-pool transaction already spends.
var (
	ErrResolveUnknownCell = "unknown input OutPoint"
	ErrResolveDeadCell    = "dead cell"
)

// Resolver builds the layered cell provider: Pending →
// Gap → Proposed → Snapshot, consulted in that order. The first overlay
// with an opinion wins.
type Resolver struct {
	Pending, Gap, Proposed *SortedTxMap
	SnapshotLive           func(op molecule.OutPoint) (capacity uint64, ok bool)
	// Exclude names in-pool entries whose spends and outputs are ignored
	// during resolution; RBF fee computation sets it to the about-to-be-
	// evicted conflict set.
	Exclude map[molecule.ProposalShortId]struct{}
}

// Resolve reports whether op is currently spendable and, if so, its
// capacity (needed by fee computation).
func (r *Resolver) Resolve(op molecule.OutPoint) (capacity uint64, status CellStatus) {
	for _, layer := range []*SortedTxMap{r.Pending, r.Gap, r.Proposed} {
		if layer == nil {
			continue
		}
		switch layer.cellExcluding(op, r.Exclude) {
		case CellDead:
			return 0, CellDead
		case CellLive:
			for id, e := range layer.entries {
				if _, skip := r.Exclude[id]; skip {
					continue
				}
				if e.Tx.TxHash() == op.TxHash && int(op.Index) < len(e.Tx.Outputs) {
					return e.Tx.Outputs[op.Index].Capacity, CellLive
				}
			}
		}
	}
	if snapCapacity, ok := r.SnapshotLive(op); ok {
		return snapCapacity, CellLive
	}
	return 0, CellUnknown
}

// ComputeFee resolves every input's capacity through the overlay and
// returns sum(inputs) - sum(outputs), or an error naming the first
// unresolvable input.
func (r *Resolver) ComputeFee(tx molecule.Transaction) (uint64, error) {
	var inputTotal uint64
	for _, in := range tx.Inputs {
		capacity, status := r.Resolve(in.PreviousOutput)
		switch status {
		case CellDead:
			return 0, rejectf(ErrResolveDeadCell+": %s", in.PreviousOutput)
		case CellUnknown:
			return 0, rejectf(ErrResolveUnknownCell+": %s", in.PreviousOutput)
		}
		inputTotal += capacity
	}
	var outputTotal uint64
	for _, out := range tx.Outputs {
		outputTotal += out.Capacity
	}
	if inputTotal < outputTotal {
		return 0, rejectf("capacity conservation violated: inputs %d < outputs %d", inputTotal, outputTotal)
	}
	return inputTotal - outputTotal, nil
}

func rejectf(format string, args ...interface{}) error {
	return &resolveError{msg: fmt.Sprintf(format, args...)}
}

type resolveError struct{ msg string }

func (e *resolveError) Error() string { return e.msg }
