package store

import "github.com/nervosnetwork/ckb-go/core/molecule"

// CellMeta describes a live cell; its presence in the store is exactly
// the cell-set membership test.
type CellMeta struct {
	OutPoint   molecule.OutPoint
	Output     molecule.CellOutput
	DataHash   molecule.Byte32
	BlockNumber uint64
}

// VerifiedState encodes a tri-state verification verdict (unknown,
// failed, passed) without relying on rlp's pointer-field semantics.
// BlockExt side data is not consensus-critical and is therefore encoded
// with rlp rather than the molecule codec.
type VerifiedState uint8

const (
	VerifiedUnknown VerifiedState = iota
	VerifiedFalse
	VerifiedTrue
)

type BlockExt struct {
	// ReceivedAtMs is unsigned because the rlp codec used for side data
	// does not encode signed integers.
	ReceivedAtMs     uint64
	TotalDifficulty  []byte // big.Int bytes, big-endian
	TotalUnclesCount uint64
	Verified         VerifiedState
	TxsFees          []uint64
	Cycles           []uint64
	TxsSizes         []uint64
}

// EpochHash identifies an EpochExt by its hash.
type EpochHash = molecule.Byte32
