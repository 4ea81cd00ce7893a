package store

import "github.com/nervosnetwork/ckb-go/core/molecule"

// ProposalsView is the (set, gap) pair returned by Snapshot.Proposals
//: set is effective for tip+1, gap enters the window as the
// tip advances.
type ProposalsView struct {
	Set map[molecule.ProposalShortId]struct{}
	Gap map[molecule.ProposalShortId]struct{}
}

// Snapshot is an immutable, lock-free read view of the entire persistent
// state at one point in time. It is never invalidated by
// any action; it simply pins the version it was taken from.
type Snapshot struct {
	rv           ReadView
	tipHeader    molecule.Header
	tipTotalDiff []byte
	epoch        molecule.EpochExt
	proposals    ProposalsView
}

func (s *Snapshot) TipHeader() molecule.Header { return s.tipHeader }
func (s *Snapshot) TipNumber() uint64          { return s.tipHeader.Number }
func (s *Snapshot) TipHash() molecule.Byte32   { return s.tipHeader.BlockHash() }
func (s *Snapshot) TipTotalDifficulty() []byte { return s.tipTotalDiff }
func (s *Snapshot) EpochExt() molecule.EpochExt { return s.epoch }
func (s *Snapshot) Proposals() ProposalsView   { return s.proposals }

func (s *Snapshot) GetBlockHeader(hash molecule.Byte32) (molecule.Header, bool) {
	return getBlockHeader(s.rv, hash)
}

func (s *Snapshot) GetBlock(hash molecule.Byte32) (molecule.Block, bool) {
	return getBlock(s.rv, hash)
}

func (s *Snapshot) GetBlockHash(number uint64) (molecule.Byte32, bool) {
	return getBlockHash(s.rv, number)
}

func (s *Snapshot) GetBlockExt(hash molecule.Byte32) (BlockExt, bool) {
	return getBlockExt(s.rv, hash)
}

// GetCellMeta is the live cell-set membership test: presence means the
// cell is unspent at this snapshot's version.
func (s *Snapshot) GetCellMeta(op molecule.OutPoint) (CellMeta, bool) {
	return getCellMeta(s.rv, op)
}

func (s *Snapshot) GetBlockEpochIndex(hash molecule.Byte32) (EpochHash, bool) {
	return getBlockEpochIndex(s.rv, hash)
}

func (s *Snapshot) GetEpochExt(hash EpochHash) (molecule.EpochExt, bool) {
	return getEpochExt(s.rv, hash)
}
