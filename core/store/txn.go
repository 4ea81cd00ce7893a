package store

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// StoreTxn batches insert_block/attach_block/detach_block/insert_block_ext
// and commits them as one all-or-nothing batch. It also keeps
// a read-your-own-writes overlay so that attaching several blocks in one
// transaction (a multi-block reorg) sees the cell-set effects of earlier
// blocks in the same transaction before they're durably committed.
type StoreTxn struct {
	store   *Store
	batch   Batch
	pending map[string][]byte
	deleted map[string]struct{}
}

func (s *Store) BeginTransaction() *StoreTxn {
	return &StoreTxn{
		store:   s,
		batch:   s.engine.NewBatch(),
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

func (t *StoreTxn) put(key, value []byte) {
	t.batch.Put(key, value)
	t.pending[string(key)] = value
	delete(t.deleted, string(key))
}

func (t *StoreTxn) del(key []byte) {
	t.batch.Delete(key)
	t.deleted[string(key)] = struct{}{}
	delete(t.pending, string(key))
}

// get reads through the pending overlay first, falling back to the
// store's latest committed generation.
func (t *StoreTxn) get(key []byte) ([]byte, bool) {
	if _, gone := t.deleted[string(key)]; gone {
		return nil, false
	}
	if v, ok := t.pending[string(key)]; ok {
		return v, true
	}
	return t.store.engine.NewReadView().Get(key)
}

// InsertBlock persists block bytes without touching the main-chain index
// or cell-set.
func (t *StoreTxn) InsertBlock(b molecule.Block) {
	hash := b.BlockHash()
	t.put(headerKey(hash), b.Header.Marshal())
	t.put(blockKey(hash), b.Marshal())
}

func (t *StoreTxn) InsertBlockExt(hash molecule.Byte32, ext BlockExt) error {
	encoded, err := rlp.EncodeToBytes(ext)
	if err != nil {
		return err
	}
	t.put(extKey(hash), encoded)
	return nil
}

// AttachBlock makes a block part of the main chain: records its
// number->hash index, mutates the cell-set (consume inputs, create
// outputs), records its epoch index, and saves an undo log (the CellMeta
// of every cell the block consumed) so a later DetachBlock can restore
// exactly what was spent.
func (t *StoreTxn) AttachBlock(b molecule.Block, epochHash EpochHash) error {
	hash := b.BlockHash()
	t.put(numberKey(b.Header.Number), hash[:])
	t.put(epochIndexKey(hash), epochHash[:])

	var undo []CellMeta
	for _, tx := range b.Transactions {
		txHash := tx.TxHash()
		for _, in := range tx.Inputs {
			if in.PreviousOutput.TxHash.IsZero() {
				continue // cellbase synthetic input
			}
			raw, ok := t.get(cellKey(in.PreviousOutput))
			if ok {
				var rc rlpCellMeta
				if err := rlp.DecodeBytes(raw, &rc); err == nil {
					undo = append(undo, rc.toCellMeta())
				}
			}
			t.del(cellKey(in.PreviousOutput))
		}
		for i, out := range tx.Outputs {
			op := molecule.OutPoint{TxHash: txHash, Index: uint32(i)}
			var dataHash molecule.Byte32
			if i < len(tx.OutputsData) {
				dataHash = molecule.Blake2b256(tx.OutputsData[i])
			}
			cm := CellMeta{OutPoint: op, Output: out, DataHash: dataHash, BlockNumber: b.Header.Number}
			encoded, err := rlp.EncodeToBytes(toRlpCellMeta(cm))
			if err != nil {
				return err
			}
			t.put(cellKey(op), encoded)
		}
	}
	return t.putUndoLog(hash, undo)
}

// DetachBlock reverses AttachBlock using the undo log saved at attach
// time: deletes the cells the block created and restores the cells it
// consumed to their pre-attach state.
func (t *StoreTxn) DetachBlock(b molecule.Block) error {
	hash := b.BlockHash()
	t.del(numberKey(b.Header.Number))

	for _, tx := range b.Transactions {
		txHash := tx.TxHash()
		for i := range tx.Outputs {
			op := molecule.OutPoint{TxHash: txHash, Index: uint32(i)}
			t.del(cellKey(op))
		}
	}
	undo, _ := t.getUndoLog(hash)
	for _, cm := range undo {
		encoded, err := rlp.EncodeToBytes(toRlpCellMeta(cm))
		if err != nil {
			return err
		}
		t.put(cellKey(cm.OutPoint), encoded)
	}
	t.del(undoLogKey(hash))
	return nil
}

func (t *StoreTxn) putUndoLog(hash molecule.Byte32, undo []CellMeta) error {
	shadow := make([]rlpCellMeta, len(undo))
	for i, cm := range undo {
		shadow[i] = toRlpCellMeta(cm)
	}
	encoded, err := rlp.EncodeToBytes(shadow)
	if err != nil {
		return err
	}
	t.put(undoLogKey(hash), encoded)
	return nil
}

func (t *StoreTxn) getUndoLog(hash molecule.Byte32) ([]CellMeta, bool) {
	raw, ok := t.get(undoLogKey(hash))
	if !ok {
		return nil, false
	}
	var shadow []rlpCellMeta
	if err := rlp.DecodeBytes(raw, &shadow); err != nil {
		return nil, false
	}
	out := make([]CellMeta, len(shadow))
	for i, s := range shadow {
		out[i] = s.toCellMeta()
	}
	return out, true
}

func (t *StoreTxn) InsertEpochExt(hash EpochHash, e molecule.EpochExt) {
	t.put(epochExtKey(hash), e.Marshal())
}

// Commit applies the whole batch atomically; an error leaves the store
// unchanged.
func (t *StoreTxn) Commit() error {
	return t.batch.Commit()
}
