package relay

import "github.com/nervosnetwork/ckb-go/core/molecule"

// PrefilledTransaction pairs a full transaction with its position in the
// block, following the (Index, Tx) shape of BIP152's compact-block wire
// format adapted to CKB. The cellbase is always prefilled.
type PrefilledTransaction struct {
	Index uint32
	Tx    molecule.Transaction
}

// CompactBlock is the sender-built announcement: a header, the nonce
// used to derive the SipHash keys, one short_id per non-prefilled
// transaction (in block order, skipping prefilled slots), the prefilled
// transactions themselves, and the block's uncles/proposals carried in
// full.
type CompactBlock struct {
	Header    molecule.Header
	Nonce     uint64
	ShortIds  []ShortID
	Prefilled []PrefilledTransaction
	Uncles    []molecule.UncleBlock
	Proposals []molecule.ProposalShortId
}

// BuildCompactBlock derives a CompactBlock from a full block: the
// cellbase (transaction 0) is always prefilled, every other transaction
// is represented by its short_id, and uncles/proposals are carried over
// unchanged.
func BuildCompactBlock(b molecule.Block, nonce uint64) CompactBlock {
	k0, k1 := ShortIDKeys(nonce)
	cb := CompactBlock{Header: b.Header, Nonce: nonce, Uncles: b.Uncles, Proposals: b.Proposals}
	for i, tx := range b.Transactions {
		if i == 0 {
			cb.Prefilled = append(cb.Prefilled, PrefilledTransaction{Index: uint32(i), Tx: tx})
			continue
		}
		cb.ShortIds = append(cb.ShortIds, ComputeShortID(k0, k1, tx.WitnessHash()))
	}
	return cb
}

// AllUncleIndexes returns every index into cb.Uncles, the uncle_indexes
// value a GetBlockTransactions round-trip request carries whenever a
// compact block with uncles needs a fresh-transactions fetch.
func (cb CompactBlock) AllUncleIndexes() []uint32 {
	if len(cb.Uncles) == 0 {
		return nil
	}
	indexes := make([]uint32, len(cb.Uncles))
	for i := range cb.Uncles {
		indexes[i] = uint32(i)
	}
	return indexes
}

// TransactionsRoot recomputes the transactions_root the way the header
// states it, letting a caller check a reconstructed body against the
// header it arrived with. The real CBMT root construction is an
// external primitive; this pairwise binary Merkle fold over tx hashes
// is a stand-in that lets reconstruction verification exercise the same
// comparison the real root would.
func TransactionsRoot(txs []molecule.Transaction) molecule.Byte32 {
	if len(txs) == 0 {
		return molecule.Byte32{}
	}
	level := make([]molecule.Byte32, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxHash()
	}
	for len(level) > 1 {
		var next []molecule.Byte32
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, molecule.Blake2b256(append(level[i][:], level[i+1][:]...)))
		}
		level = next
	}
	return level[0]
}
