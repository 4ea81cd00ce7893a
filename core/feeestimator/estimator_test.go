package feeestimator

import (
	"errors"
	"testing"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

func shortID(b byte) molecule.ProposalShortId {
	var id molecule.ProposalShortId
	id[0] = b
	return id
}

func TestBucketForMonotone(t *testing.T) {
	bounds := buildBoundaries(1000)
	if bucketFor(bounds, 500) != 0 {
		t.Fatalf("below-range rate should fall into the lowest bucket")
	}
	if bucketFor(bounds, 1000) != 0 {
		t.Fatalf("exact minimum rate should land in bucket 0")
	}
	if bucketFor(bounds, 1000*MaxRateMultiplier) != NumBuckets-1 {
		t.Fatalf("max rate should land in the last bucket")
	}
	prev := -1
	for _, r := range []float64{1000, 2000, 5000, 50000, 5000000} {
		b := bucketFor(bounds, r)
		if b < prev {
			t.Fatalf("bucket index must be non-decreasing as rate grows")
		}
		prev = b
	}
}

func TestEstimateNotReadyBeforeEnoughBlocks(t *testing.T) {
	e := New(1000)
	_, err := e.Estimate(6, 0.85, 20)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady before blocksObserved reaches ReadyAfterBlocks, got %v", err)
	}
}

func TestTrackingAdmitCommitFillsConfirmedBucket(t *testing.T) {
	e := New(1000)
	for i := 0; i < ReadyAfterBlocks; i++ {
		e.DecayBlock()
	}

	// Admit 25 high-fee-rate transactions at height 100, confirm them all
	// 1 block later, so confirmed[1][topBucket] accumulates samples.
	for i := 0; i < 25; i++ {
		e.OnAdmit(shortID(byte(i)), 1000*MaxRateMultiplier, 100)
	}
	for i := 0; i < 25; i++ {
		e.OnCommit(shortID(byte(i)), 101)
	}

	rate, err := e.Estimate(1, 0.85, 20)
	if err != nil {
		t.Fatalf("expected a usable estimate, got error %v", err)
	}
	if rate == 0 {
		t.Fatalf("expected a non-zero fee-rate estimate")
	}
}

func TestTrackingRejectLowersConfirmRate(t *testing.T) {
	e := New(1000)
	for i := 0; i < ReadyAfterBlocks; i++ {
		e.DecayBlock()
	}

	for i := 0; i < 25; i++ {
		e.OnAdmit(shortID(byte(i)), 1000, 100)
	}
	// Every single one fails to confirm in time.
	for i := 0; i < 25; i++ {
		e.OnReject(shortID(byte(i)), 101)
	}

	_, err := e.Estimate(1, 0.85, 20)
	if !errors.Is(err, ErrNoProperFeeRate) {
		t.Fatalf("expected ErrNoProperFeeRate when every sample fails, got %v", err)
	}
}

func TestOnReorgRemovesPendingWithoutScoring(t *testing.T) {
	e := New(1000)
	id := shortID(7)
	e.OnAdmit(id, 2000, 10)
	e.OnReorgOrExpiry(id)

	if _, stillPending := e.pending[id]; stillPending {
		t.Fatalf("expected the transaction to be dropped from pending after a reorg/expiry")
	}
	if e.buckets[bucketFor(e.bounds, 2000)].oldUnconfirmed != 0 {
		t.Fatalf("expected oldUnconfirmed to be decremented back to zero")
	}
}

func TestDecayBlockHalvesCountsOverHalfLife(t *testing.T) {
	e := New(1000)
	e.OnAdmit(shortID(1), 1000, 1)
	before := e.buckets[0].txsCount
	for i := 0; i < HalfLifeBlocks; i++ {
		e.DecayBlock()
	}
	after := e.buckets[0].txsCount
	if after >= before/1.9 || after <= before/2.1 {
		t.Fatalf("expected roughly half the original count after one half-life, got before=%v after=%v", before, after)
	}
}
