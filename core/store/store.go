package store

import (
	"bytes"
	"fmt"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// Store durably owns blocks, headers, per-block side data, the cell-set,
// epoch indexes and the chain-spec-hash stamp.
type Store struct {
	engine KVEngine
}

func NewStore(engine KVEngine) *Store {
	return &Store{engine: engine}
}

func (s *Store) GetBlockHeader(hash molecule.Byte32) (molecule.Header, bool) {
	return getBlockHeader(s.engine.NewReadView(), hash)
}

func (s *Store) GetBlock(hash molecule.Byte32) (molecule.Block, bool) {
	return getBlock(s.engine.NewReadView(), hash)
}

// GetBlockHash resolves a main-chain block number to its hash.
func (s *Store) GetBlockHash(number uint64) (molecule.Byte32, bool) {
	return getBlockHash(s.engine.NewReadView(), number)
}

func (s *Store) GetBlockExt(hash molecule.Byte32) (BlockExt, bool) {
	return getBlockExt(s.engine.NewReadView(), hash)
}

func (s *Store) GetCellMeta(op molecule.OutPoint) (CellMeta, bool) {
	return getCellMeta(s.engine.NewReadView(), op)
}

func (s *Store) GetBlockEpochIndex(hash molecule.Byte32) (EpochHash, bool) {
	return getBlockEpochIndex(s.engine.NewReadView(), hash)
}

func (s *Store) GetEpochExt(hash EpochHash) (molecule.EpochExt, bool) {
	return getEpochExt(s.engine.NewReadView(), hash)
}

// Snapshot takes an immutable, lock-free read view of the entire store at
// this instant.
func (s *Store) Snapshot(tipHeader molecule.Header, tipTotalDifficulty []byte, epoch molecule.EpochExt, proposals ProposalsView) *Snapshot {
	return &Snapshot{
		rv:              s.engine.NewReadView(),
		tipHeader:       tipHeader,
		tipTotalDiff:    tipTotalDifficulty,
		epoch:           epoch,
		proposals:       proposals,
	}
}

func (s *Store) BeginTxn() *StoreTxn {
	return s.BeginTransaction()
}

// rlp doesn't support [N]byte array fields cleanly for our molecule types
// without adapters, so side-data structs that embed molecule fields use a
// plain-bytes shadow type for rlp encoding.
type rlpCellMeta struct {
	OutPoint    []byte
	Output      []byte
	DataHash    []byte
	BlockNumber uint64
}

func toRlpCellMeta(cm CellMeta) rlpCellMeta {
	return rlpCellMeta{
		OutPoint:    cm.OutPoint.Marshal(),
		Output:      cm.Output.Marshal(),
		DataHash:    cm.DataHash[:],
		BlockNumber: cm.BlockNumber,
	}
}

func (r rlpCellMeta) toCellMeta() CellMeta {
	var dh molecule.Byte32
	copy(dh[:], r.DataHash)
	return CellMeta{
		OutPoint:    molecule.UnmarshalOutPoint(r.OutPoint),
		Output:      molecule.UnmarshalCellOutput(r.Output),
		DataHash:    dh,
		BlockNumber: r.BlockNumber,
	}
}

// SpecHashPolicy governs the chain-spec-hash stamp check at startup: a
// fresh store writes the stamp; a matching stamp proceeds; a mismatch is
// rejected unless the caller opted into skip/overwrite.
type SpecHashPolicy int

const (
	SpecHashStrict SpecHashPolicy = iota
	SpecHashSkipCheck
	SpecHashOverwrite
)

var ErrSpecHashMismatch = fmt.Errorf("chain spec hash mismatch")

func (s *Store) CheckSpecHash(expected []byte, policy SpecHashPolicy) error {
	existing, ok := s.engine.NewReadView().Get(specHashKey)
	if !ok {
		b := s.engine.NewBatch()
		b.Put(specHashKey, expected)
		return b.Commit()
	}
	if bytes.Equal(existing, expected) {
		return nil
	}
	switch policy {
	case SpecHashSkipCheck:
		return nil
	case SpecHashOverwrite:
		b := s.engine.NewBatch()
		b.Put(specHashKey, expected)
		return b.Commit()
	default:
		return ErrSpecHashMismatch
	}
}
