package metrics

import (
	"testing"

	"github.com/nervosnetwork/ckb-go/core/feeestimator"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTipSetsGauges(t *testing.T) {
	m := New()
	m.ObserveTip(1000, 123456.0)

	if got := testutil.ToFloat64(m.tipHeight); got != 1000 {
		t.Fatalf("expected tip height gauge to read 1000, got %v", got)
	}
	if got := testutil.ToFloat64(m.tipDifficulty); got != 123456.0 {
		t.Fatalf("expected tip difficulty gauge to read 123456, got %v", got)
	}
}

func TestObserveFeeEstimatorExportsEveryBucket(t *testing.T) {
	m := New()
	est := feeestimator.New(1000)
	m.ObserveFeeEstimator(est)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "ckb_fee_estimator_bucket_count" {
			if got := len(f.GetMetric()); got != feeestimator.NumBuckets {
				t.Fatalf("expected %d bucket series, got %d", feeestimator.NumBuckets, got)
			}
			return
		}
	}
	t.Fatalf("ckb_fee_estimator_bucket_count family not found")
}
