// Package mmr names the Merkle Mountain Range proof primitive as a
// narrow interface. MMR construction is an external primitive used by
// the light-client protocol; this package only defines the contract
// chain headers would be proven against if a light-client server were
// built on top of this node.
package mmr

import "github.com/nervosnetwork/ckb-go/core/molecule"

// Proof is an opaque inclusion proof for one leaf against a root.
type Proof struct {
	Root  molecule.Byte32
	Path  []molecule.Byte32
	Index uint64
}

// Prover appends header hashes to a rolling MMR and proves membership.
type Prover interface {
	Append(leaf molecule.Byte32) (root molecule.Byte32, err error)
	Prove(index uint64) (Proof, error)
	Verify(proof Proof, leaf molecule.Byte32) bool
}

// FakeProver is a test fake: it keeps every leaf in memory, uses the last
// appended leaf as its "root", and "proves" membership by comparing the
// leaf stored at the proof's index. It exists so call sites can depend on
// Prover without pulling in a real MMR implementation.
type FakeProver struct {
	leaves []molecule.Byte32
}

func NewFakeProver() *FakeProver { return &FakeProver{} }

func (p *FakeProver) Append(leaf molecule.Byte32) (molecule.Byte32, error) {
	p.leaves = append(p.leaves, leaf)
	return p.root(), nil
}

func (p *FakeProver) Prove(index uint64) (Proof, error) {
	if index >= uint64(len(p.leaves)) {
		return Proof{}, ErrIndexOutOfRange
	}
	return Proof{Root: p.root(), Path: nil, Index: index}, nil
}

func (p *FakeProver) Verify(proof Proof, leaf molecule.Byte32) bool {
	if proof.Index >= uint64(len(p.leaves)) {
		return false
	}
	return p.leaves[proof.Index] == leaf && proof.Root == p.root()
}

func (p *FakeProver) root() molecule.Byte32 {
	if len(p.leaves) == 0 {
		return molecule.Byte32{}
	}
	return p.leaves[len(p.leaves)-1]
}

// ErrIndexOutOfRange is returned by Prove for an index past the current
// leaf count.
var ErrIndexOutOfRange = indexOutOfRangeError{}

type indexOutOfRangeError struct{}

func (indexOutOfRangeError) Error() string { return "mmr: index out of range" }
