package store

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// The functions below implement every read in terms of an explicit
// ReadView so both Store (which always reads the latest generation) and
// Snapshot (which pins one generation forever) share one implementation.

func getBlockHeader(rv ReadView, hash molecule.Byte32) (molecule.Header, bool) {
	b, ok := rv.Get(headerKey(hash))
	if !ok {
		return molecule.Header{}, false
	}
	return molecule.UnmarshalHeader(b), true
}

func getBlock(rv ReadView, hash molecule.Byte32) (molecule.Block, bool) {
	b, ok := rv.Get(blockKey(hash))
	if !ok {
		return molecule.Block{}, false
	}
	return molecule.UnmarshalBlock(b), true
}

func getBlockHash(rv ReadView, number uint64) (molecule.Byte32, bool) {
	b, ok := rv.Get(numberKey(number))
	if !ok {
		return molecule.Byte32{}, false
	}
	var h molecule.Byte32
	copy(h[:], b)
	return h, true
}

func getBlockExt(rv ReadView, hash molecule.Byte32) (BlockExt, bool) {
	b, ok := rv.Get(extKey(hash))
	if !ok {
		return BlockExt{}, false
	}
	var ext BlockExt
	if err := rlp.DecodeBytes(b, &ext); err != nil {
		return BlockExt{}, false
	}
	return ext, true
}

func getCellMeta(rv ReadView, op molecule.OutPoint) (CellMeta, bool) {
	b, ok := rv.Get(cellKey(op))
	if !ok {
		return CellMeta{}, false
	}
	var cm rlpCellMeta
	if err := rlp.DecodeBytes(b, &cm); err != nil {
		return CellMeta{}, false
	}
	return cm.toCellMeta(), true
}

func getBlockEpochIndex(rv ReadView, hash molecule.Byte32) (EpochHash, bool) {
	b, ok := rv.Get(epochIndexKey(hash))
	if !ok {
		return EpochHash{}, false
	}
	var h EpochHash
	copy(h[:], b)
	return h, true
}

func getEpochExt(rv ReadView, hash EpochHash) (molecule.EpochExt, bool) {
	b, ok := rv.Get(epochExtKey(hash))
	if !ok {
		return molecule.EpochExt{}, false
	}
	return molecule.UnmarshalEpochExt(b), true
}
