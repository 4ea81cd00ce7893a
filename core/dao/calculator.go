// Package dao names the Nervos DAO economic formula as a pure-function
// interface: a function of the parent header and the block's resolved
// transactions. This package only defines the contract the chain
// service's contextual validation calls into; the formula itself is an
// external primitive.
package dao

import "github.com/nervosnetwork/ckb-go/core/molecule"

// Calculator recomputes a header's dao field and the accumulated
// secondary-issuance statistics it packs, given the parent header and
// the block's resolved transactions.
type Calculator interface {
	// Recompute returns the 32-byte dao field a block at the given
	// header should carry, given its parent's dao field and the block's
	// resolved transaction set (rewards withdrawn, capacities locked).
	Recompute(parent molecule.Header, block molecule.Block) (molecule.Byte32, error)
}

// ZeroCalculator is a test fake: it always returns the zero dao field,
// letting chain-service tests exercise the rest of contextual
// validation without modelling the real issuance formula.
type ZeroCalculator struct{}

func (ZeroCalculator) Recompute(molecule.Header, molecule.Block) (molecule.Byte32, error) {
	return molecule.Byte32{}, nil
}
