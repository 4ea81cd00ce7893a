// Package txpool holds unconfirmed transactions, enforces resource caps,
// orders them by effective fee rate, resolves inputs against an overlay
// of itself plus the chain snapshot, and supports Replace-By-Fee.
package txpool

import (
	"math/big"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// TxEntry is one pool-resident transaction plus the ancestor aggregates
// used for fee-rate ordering.
type TxEntry struct {
	Tx          molecule.Transaction
	Fee         uint64
	VBytes      uint64
	Cycles      uint64
	TimestampMs int64

	AncestorsFee    uint64
	AncestorsVBytes uint64
	AncestorsCount  uint64
}

func (e TxEntry) id() molecule.ProposalShortId { return e.Tx.ProposalShortId() }

// sortKeyLess orders entries by effective fee rate. Each entry first picks
// whichever of (fee, vbytes) or (ancestors_fee, ancestors_vbytes) has the
// lower rate (minFeeAndVBytes); the two entries' picked pairs are then
// cross-multiplied against each other to compare their rates without
// dividing. Ties fall back to ancestors_vbytes, then id.
func sortKeyLess(a, b TxEntry) bool {
	aFee, aVBytes := minFeeAndVBytes(a)
	bFee, bVBytes := minFeeAndVBytes(b)

	aWeight := new(big.Int).Mul(big.NewInt(int64(aFee)), big.NewInt(int64(bVBytes)))
	bWeight := new(big.Int).Mul(big.NewInt(int64(bFee)), big.NewInt(int64(aVBytes)))
	if cmp := aWeight.Cmp(bWeight); cmp != 0 {
		return cmp < 0
	}
	if a.AncestorsVBytes != b.AncestorsVBytes {
		return a.AncestorsVBytes < b.AncestorsVBytes
	}
	return a.id().String() < b.id().String()
}

// minFeeAndVBytes picks whichever of the entry's own (fee, vbytes) or its
// ancestor-set aggregate (ancestors_fee, ancestors_vbytes) has the lower
// fee rate, comparing via cross-multiplication to avoid dividing.
func minFeeAndVBytes(e TxEntry) (fee, vbytes uint64) {
	txWeight := new(big.Int).Mul(big.NewInt(int64(e.Fee)), big.NewInt(int64(e.AncestorsVBytes)))
	ancestorsWeight := new(big.Int).Mul(big.NewInt(int64(e.AncestorsFee)), big.NewInt(int64(e.VBytes)))
	if txWeight.Cmp(ancestorsWeight) < 0 {
		return e.Fee, e.VBytes
	}
	return e.AncestorsFee, e.AncestorsVBytes
}

// txVBytes is this implementation's fee-rate denominator: the
// transaction's canonical serialized size. Real CKB-VM cycle accounting
// is a black-box collaborator (core/script.VM); the pool only needs a
// stable, monotone proxy for relay/storage cost.
func txVBytes(tx molecule.Transaction) uint64 {
	return uint64(len(tx.Marshal()))
}
