// Package feeestimator implements a confirmation-fraction fee
// estimator: geometric fee-rate buckets, per-target-depth
// confirmed/failed/pending tracking with a 100-block half-life decay,
// and a sliding-window confirmation-rate estimation algorithm.
package feeestimator

import "math"

// NumBuckets is the number of geometric fee-rate buckets spanning
// [min_rate, min_rate*MaxRateMultiplier].
const NumBuckets = 200

// MaxRateMultiplier is the top of the bucket range, expressed as a
// multiple of min_rate.
const MaxRateMultiplier = 10000.0

// MaxTargetDepth is the largest confirmation-depth target tracked.
const MaxTargetDepth = 1000

// HalfLifeBlocks is the per-block decay half-life: each new block
// multiplies every running count by DecayFactor, so a sample's weight
// halves every 100 blocks.
const HalfLifeBlocks = 100

// DecayFactor is exp(ln(0.5)/100), applied once per observed block.
var DecayFactor = math.Exp(math.Ln2 * -1 / HalfLifeBlocks)

// buildBoundaries returns NumBuckets geometrically spaced lower bounds,
// buckets[0] == minRate, buckets[NumBuckets-1] == minRate*MaxRateMultiplier.
func buildBoundaries(minRate float64) []float64 {
	bounds := make([]float64, NumBuckets)
	for i := 0; i < NumBuckets; i++ {
		// Pow per index rather than a running product: repeated
		// multiplication drifts enough to push the top bound past
		// minRate*MaxRateMultiplier.
		bounds[i] = minRate * math.Pow(MaxRateMultiplier, float64(i)/float64(NumBuckets-1))
	}
	return bounds
}

// bucketFor returns the index of the highest boundary not exceeding
// rate, clamped to [0, NumBuckets-1].
func bucketFor(bounds []float64, rate float64) int {
	if rate <= bounds[0] {
		return 0
	}
	lo, hi := 0, len(bounds)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if bounds[mid] <= rate {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// bucketStats is the running per-bucket state:
// (total_fee_rate, txs_count, old_unconfirmed_txs).
type bucketStats struct {
	totalFeeRate     float64
	txsCount         float64
	oldUnconfirmed   float64 // pending proxy: currently-admitted, not-yet-resolved txs in this bucket
}
