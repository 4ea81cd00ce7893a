package feeestimator

import (
	"errors"
	"sort"
	"sync"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// ErrNoProperFeeRate is returned when no window of buckets reaches the
// required confirm rate.
var ErrNoProperFeeRate = errors.New("feeestimator: no fee rate meets the required confirmation rate")

// ErrNotReady is returned until the node has observed enough blocks
// after IBD exit to trust the estimate.
var ErrNotReady = errors.New("feeestimator: not enough blocks observed yet")

// ReadyAfterBlocks is how many post-IBD blocks must be observed before
// estimates are trusted.
const ReadyAfterBlocks = 12

// pendingTx is the bookkeeping kept per admitted, not-yet-resolved
// transaction: the bucket it landed in and the height it arrived at.
type pendingTx struct {
	bucket        int
	admittedAt    uint64
	feeRate       float64
}

// Estimator tracks confirmation statistics across the geometric bucket
// range and answers confirmation-fraction fee estimates.
type Estimator struct {
	mu sync.Mutex

	bounds  []float64
	buckets []bucketStats

	// confirmed[d][bucket] / failed[d][bucket] for d in [0, MaxTargetDepth],
	// index 0 unused since target depth is 1-indexed.
	confirmed [][]float64
	failed    [][]float64

	pending map[molecule.ProposalShortId]pendingTx

	blocksObserved uint64
}

// New builds an Estimator whose buckets span [minRate, minRate*10000].
func New(minRate uint64) *Estimator {
	if minRate == 0 {
		minRate = 1
	}
	e := &Estimator{
		bounds:  buildBoundaries(float64(minRate)),
		buckets: make([]bucketStats, NumBuckets),
		pending: make(map[molecule.ProposalShortId]pendingTx),
	}
	e.confirmed = make([][]float64, MaxTargetDepth+1)
	e.failed = make([][]float64, MaxTargetDepth+1)
	for d := 0; d <= MaxTargetDepth; d++ {
		e.confirmed[d] = make([]float64, NumBuckets)
		e.failed[d] = make([]float64, NumBuckets)
	}
	return e
}

// OnAdmit records a transaction entering the pool at height with the
// given fee rate (shannons per vbyte).
func (e *Estimator) OnAdmit(id molecule.ProposalShortId, feeRate float64, height uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := bucketFor(e.bounds, feeRate)
	e.buckets[b].totalFeeRate += feeRate
	e.buckets[b].txsCount++
	e.buckets[b].oldUnconfirmed++
	e.pending[id] = pendingTx{bucket: b, admittedAt: height, feeRate: feeRate}
}

// OnCommit classifies a just-confirmed transaction into confirmed[d][bucket]
// where d is the number of blocks between admission and commitHeight.
func (e *Estimator) OnCommit(id molecule.ProposalShortId, commitHeight uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	e.buckets[p.bucket].oldUnconfirmed--

	depth := depthOf(p.admittedAt, commitHeight)
	e.confirmed[depth][p.bucket]++
}

// OnReject classifies a dropped transaction as a failure at the depth
// it had already waited.
func (e *Estimator) OnReject(id molecule.ProposalShortId, heightNow uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	e.buckets[p.bucket].oldUnconfirmed--

	depth := depthOf(p.admittedAt, heightNow)
	e.failed[depth][p.bucket]++
}

// OnReorgOrExpiry removes a transaction from the pending set without
// recording either a confirmation or a failure.
func (e *Estimator) OnReorgOrExpiry(id molecule.ProposalShortId) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	e.buckets[p.bucket].oldUnconfirmed--
}

func depthOf(admittedAt, now uint64) int {
	if now <= admittedAt {
		return 1
	}
	d := int(now - admittedAt)
	if d > MaxTargetDepth {
		d = MaxTargetDepth
	}
	return d
}

// DecayBlock applies the per-block half-life decay to every running
// count, and marks one more block observed since IBD exit.
func (e *Estimator) DecayBlock() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.buckets {
		e.buckets[i].totalFeeRate *= DecayFactor
		e.buckets[i].txsCount *= DecayFactor
		e.buckets[i].oldUnconfirmed *= DecayFactor
	}
	for d := 0; d <= MaxTargetDepth; d++ {
		for b := 0; b < NumBuckets; b++ {
			e.confirmed[d][b] *= DecayFactor
			e.failed[d][b] *= DecayFactor
		}
	}
	e.blocksObserved++
}

// BucketCount reports the current (decayed) txs_count for bucket i,
// consumed by core/metrics for the bucket-occupancy gauges.
func (e *Estimator) BucketCount(i int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buckets[i].txsCount
}

// Estimate answers the sliding-window estimate for target depth d,
// required confirm rate r, and minimum sample size s.
func (e *Estimator) Estimate(targetDepth int, requiredRate float64, minSamples float64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.blocksObserved < ReadyAfterBlocks {
		return 0, ErrNotReady
	}
	if targetDepth < 1 {
		targetDepth = 1
	}
	if targetDepth > MaxTargetDepth {
		targetDepth = MaxTargetDepth
	}
	confirmedRow := e.confirmed[targetDepth]
	failedRow := e.failed[targetDepth]

	// Step 1: sum buckets from the highest fee rate downward until
	// txs_count >= minSamples. The window's top is always the highest
	// bucket: when the confirm rate falls short the window is widened by
	// one lower bucket, never slid upward.
	hi := NumBuckets - 1
	for lo := hi; lo >= 0; lo-- {
		var txs, confirmedSum, failedSum, pendingSum float64
		for b := hi; b >= lo; b-- {
			txs += e.buckets[b].txsCount
			confirmedSum += confirmedRow[b]
			failedSum += failedRow[b]
			pendingSum += e.buckets[b].oldUnconfirmed
		}
		if txs < minSamples {
			continue
		}
		total := confirmedSum + failedSum + pendingSum
		if total == 0 {
			continue
		}
		confirmRate := confirmedSum / total
		if confirmRate >= requiredRate {
			return medianRate(e.bounds, lo, hi), nil
		}
		// Sample size reached but the rate fell short: widen the window
		// by one lower bucket and re-check.
	}
	return 0, ErrNoProperFeeRate
}

// medianRate returns the median of the bucket lower-bounds in [lo, hi].
func medianRate(bounds []float64, lo, hi int) uint64 {
	n := hi - lo + 1
	mid := lo + n/2
	vals := make([]float64, 0, n)
	for b := lo; b <= hi; b++ {
		vals = append(vals, bounds[b])
	}
	sort.Float64s(vals)
	return uint64(vals[mid-lo])
}
