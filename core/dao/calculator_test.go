package dao

import (
	"testing"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

func TestZeroCalculatorReturnsZeroField(t *testing.T) {
	var c ZeroCalculator
	field, err := c.Recompute(molecule.Header{}, molecule.Block{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field != (molecule.Byte32{}) {
		t.Fatalf("expected the zero dao field, got %x", field)
	}
}
