// Package script defines the narrow interface the CKB-VM script engine
// plugs into: given a transaction and its resolved inputs/deps, produce
// a cycle count or a failure. Naming the boundary lets chain/txpool
// code depend on an interface instead of a concrete VM.
package script

import (
	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
)

// ResolvedTransaction pairs a transaction with the live cells its inputs
// and cell-deps resolved to, the shape the VM needs to run lock/type
// scripts without touching the store itself.
type ResolvedTransaction struct {
	Transaction    molecule.Transaction
	ResolvedInputs []store.CellMeta
	ResolvedDeps   []store.CellMeta
}

// VerifyResult is what a successful run reports: the cycle count spent,
// recorded into BlockExt.Cycles for later audit and caching.
type VerifyResult struct {
	Cycles uint64
}

// VM runs lock and type scripts against a resolved transaction. The real
// engine interprets RISC-V bytecode (code_hash/hash_type select it);
// this package only defines the contract chain/txpool verification calls.
type VM interface {
	// Verify runs every lock and type script named by rtx, within
	// maxCycles. A script failure or a cycles-exceeded condition is
	// fatal to the transaction (and, if already included in a block,
	// fatal to that block).
	Verify(rtx ResolvedTransaction, maxCycles uint64) (VerifyResult, error)
}

// NullVM is a test fake: it accepts every transaction and reports a
// cycle count proportional to witness bytes, standing in for the real
// VM in unit tests that don't exercise script semantics.
type NullVM struct {
	CyclesPerWitnessByte uint64
}

// NewNullVM returns a NullVM with a nominal per-byte cycle cost.
func NewNullVM() *NullVM {
	return &NullVM{CyclesPerWitnessByte: 10}
}

func (v *NullVM) Verify(rtx ResolvedTransaction, maxCycles uint64) (VerifyResult, error) {
	var bytes uint64
	for _, w := range rtx.Transaction.Witnesses {
		bytes += uint64(len(w))
	}
	cycles := bytes * v.CyclesPerWitnessByte
	if cycles > maxCycles {
		return VerifyResult{}, ErrCyclesExceeded
	}
	return VerifyResult{Cycles: cycles}, nil
}

// ErrCyclesExceeded is returned when a script run would exceed the
// caller's max_cycles budget.
var ErrCyclesExceeded = &CyclesExceededError{}

// CyclesExceededError reports the VM ran out of its cycle budget.
type CyclesExceededError struct{}

func (*CyclesExceededError) Error() string { return "script: cycles exceeded max_block_cycles" }
