package txpool

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/store/memkv"
)

func newTestSnapshotHandle(t *testing.T, live map[molecule.OutPoint]uint64) (*store.SnapshotHandle, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	eng, err := memkv.Open(filepath.Join(dir, "wal"))
	if err != nil {
		t.Fatalf("open memkv: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	s := store.NewStore(eng)

	txn := s.BeginTransaction()
	genesis := molecule.Block{Header: molecule.NewHeaderBuilder().Number(0).Build()}
	var fundingOutputs []molecule.CellOutput
	var fundingData [][]byte
	for op, capacity := range live {
		_ = op
		fundingOutputs = append(fundingOutputs, molecule.CellOutput{Capacity: capacity})
		fundingData = append(fundingData, nil)
	}
	fundingTx := molecule.Transaction{Outputs: fundingOutputs, OutputsData: fundingData}
	genesis.Transactions = []molecule.Transaction{fundingTx}
	txn.InsertBlock(genesis)
	if err := txn.AttachBlock(genesis, molecule.Byte32{}); err != nil {
		t.Fatalf("attach genesis: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit genesis: %v", err)
	}

	snap := s.Snapshot(genesis.Header, nil, molecule.EpochExt{}, store.ProposalsView{Set: map[molecule.ProposalShortId]struct{}{}, Gap: map[molecule.ProposalShortId]struct{}{}})
	return store.NewSnapshotHandle(snap), s
}

// TestRBFBasic: tx2 strictly outbids tx1 on the
// same input, tx1 is evicted, tx2 lands in Pending (no proposal window
// configured in this test, so everything stays Pending) ready to be
// "mined" by moving it through OnBlockAttached.
func TestRBFBasic(t *testing.T) {
	fundingOutPoint := molecule.OutPoint{} // placeholder, replaced below
	handle, _ := newTestSnapshotHandle(t, map[molecule.OutPoint]uint64{fundingOutPoint: 100000})
	snap := handle.Load()

	// Recover the funding tx hash from the snapshot's genesis block to
	// build a real spendable OutPoint (the placeholder key above only
	// drove the test fixture's single-output funding transaction).
	genesisHash, _ := snap.GetBlockHash(0)
	genesisBlock, _ := snap.GetBlock(genesisHash)
	fundingTxHash := genesisBlock.Transactions[0].TxHash()
	op := molecule.OutPoint{TxHash: fundingTxHash, Index: 0}

	pool, err := NewTxPool(handle, 25, 1, 1000)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	tx1 := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: op}).
		Output(molecule.CellOutput{Capacity: 90000}). // fee = 100000-90000 = 10000
		OutputData(nil).
		Build()
	if _, _, err := pool.SubmitTx(tx1); err != nil {
		t.Fatalf("submit tx1: %v", err)
	}

	tx2 := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: op}).
		Output(molecule.CellOutput{Capacity: 80000}). // fee = 100000-80000 = 20000
		OutputData(nil).
		Build()
	_, evicted, err := pool.SubmitTx(tx2)
	if err != nil {
		t.Fatalf("submit tx2 should replace tx1: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != tx1.ProposalShortId() {
		t.Fatalf("expected tx1 to be evicted, got %v", evicted)
	}
	if pool.pending.Contains(tx1.ProposalShortId()) {
		t.Fatalf("tx1 should no longer be in the pool")
	}
	if !pool.pending.Contains(tx2.ProposalShortId()) {
		t.Fatalf("tx2 should be pending")
	}

	// Mine a block that commits tx2: OnBlockAttached should remove it
	// from Proposed, recording it in the committed-tx cache.
	pool.mu.Lock()
	entry, _ := pool.pending.Remove(tx2.ProposalShortId())
	_, err = pool.proposed.Add(entry.Tx, entry.Fee, entry.Cycles)
	pool.mu.Unlock()
	if err != nil {
		t.Fatalf("move tx2 to proposed: %v", err)
	}

	cellbase := molecule.Transaction{}
	pool.OnBlockAttached([]molecule.Transaction{cellbase, tx2})
	if _, ok := pool.committedCache.Get(tx2.ProposalShortId()); !ok {
		t.Fatalf("expected tx2 recorded in committed-tx cache")
	}
}

func TestRBFRejectsLowerFeeRate(t *testing.T) {
	op := molecule.OutPoint{}
	handle, _ := newTestSnapshotHandle(t, map[molecule.OutPoint]uint64{op: 100000})
	snap := handle.Load()
	genesisHash, _ := snap.GetBlockHash(0)
	genesisBlock, _ := snap.GetBlock(genesisHash)
	fundingTxHash := genesisBlock.Transactions[0].TxHash()
	realOp := molecule.OutPoint{TxHash: fundingTxHash, Index: 0}

	pool, err := NewTxPool(handle, 25, 1, 1000)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	tx1 := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: realOp}).
		Output(molecule.CellOutput{Capacity: 90000}).
		OutputData(nil).
		Build()
	if _, _, err := pool.SubmitTx(tx1); err != nil {
		t.Fatalf("submit tx1: %v", err)
	}

	tx2 := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: realOp}).
		Output(molecule.CellOutput{Capacity: 95000}). // fee = 5000, lower than tx1's 10000
		OutputData(nil).
		Build()
	if _, _, err := pool.SubmitTx(tx2); err == nil {
		t.Fatalf("expected RBF rejection for a lower fee-rate replacement")
	} else if !strings.Contains(err.Error(), "fee rate") {
		t.Fatalf("expected a fee-rate rejection reason, got: %v", err)
	}
}

// TestSortedIdsOrdering checks the sort-key ordering directly: a
// standalone high-fee-rate entry outranks a standalone low-fee-rate one.
func TestSortedIdsOrdering(t *testing.T) {
	m := NewSortedTxMap(25)
	lowFeeTx := molecule.NewTransactionBuilder().Output(molecule.CellOutput{Capacity: 1}).OutputData(nil).Witness([]byte{0}).Build()
	highFeeTx := molecule.NewTransactionBuilder().Output(molecule.CellOutput{Capacity: 2}).OutputData(nil).Witness([]byte{1}).Build()

	if _, err := m.Add(lowFeeTx, 10, 0); err != nil {
		t.Fatalf("add low-fee tx: %v", err)
	}
	if _, err := m.Add(highFeeTx, 1000, 0); err != nil {
		t.Fatalf("add high-fee tx: %v", err)
	}

	ids := m.SortedIds()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != highFeeTx.ProposalShortId() {
		t.Fatalf("expected the high fee-rate tx to sort first")
	}
}

// TestSortedIdsOrderingWithDifferingVBytes checks the fee-rate comparison
// actually cross-multiplies when the two entries' vbytes differ: a small,
// low-fee transaction with a high true rate must still outrank a much
// larger, higher-fee transaction with a lower true rate.
func TestSortedIdsOrderingWithDifferingVBytes(t *testing.T) {
	m := NewSortedTxMap(25)
	bigLowRateTx := molecule.NewTransactionBuilder().
		Output(molecule.CellOutput{Capacity: 1}).
		OutputData(nil).
		Witness(make([]byte, 2000)).
		Build()
	smallHighRateTx := molecule.NewTransactionBuilder().
		Output(molecule.CellOutput{Capacity: 2}).
		OutputData(nil).
		Witness([]byte{1}).
		Build()

	if _, err := m.Add(bigLowRateTx, 10, 0); err != nil {
		t.Fatalf("add big low-rate tx: %v", err)
	}
	if _, err := m.Add(smallHighRateTx, 5, 0); err != nil {
		t.Fatalf("add small high-rate tx: %v", err)
	}

	bigEntry := m.entries[bigLowRateTx.ProposalShortId()]
	smallEntry := m.entries[smallHighRateTx.ProposalShortId()]
	if bigEntry.VBytes <= smallEntry.VBytes {
		t.Fatalf("test fixture invalid: expected bigLowRateTx to have far more vbytes, got big=%d small=%d", bigEntry.VBytes, smallEntry.VBytes)
	}

	ids := m.SortedIds()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids[0] != smallHighRateTx.ProposalShortId() {
		t.Fatalf("expected the small high true-fee-rate tx to sort first despite its lower absolute fee")
	}
}

// TestPoolLifecycleAcrossProposalWindow drives one transaction through
// the full window lifecycle at pool level: submitted before its id is
// anywhere near the window (Pending), the window's gap reaching it on a
// later attach (Gap), the window proper reaching it (Proposed), and the
// id finally expiring at or below tip-far (back to Pending).
func TestPoolLifecycleAcrossProposalWindow(t *testing.T) {
	fundingOutPoint := molecule.OutPoint{}
	handle, st := newTestSnapshotHandle(t, map[molecule.OutPoint]uint64{fundingOutPoint: 100000})
	snap := handle.Load()
	genesisHash, _ := snap.GetBlockHash(0)
	genesisBlock, _ := snap.GetBlock(genesisHash)
	fundingTxHash := genesisBlock.Transactions[0].TxHash()
	op := molecule.OutPoint{TxHash: fundingTxHash, Index: 0}

	pool, err := NewTxPool(handle, 25, 1, 1000)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	tx := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: op}).
		Output(molecule.CellOutput{Capacity: 90000}).
		OutputData(nil).
		Build()
	if _, _, err := pool.SubmitTx(tx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := tx.ProposalShortId()
	if !pool.pending.Contains(id) {
		t.Fatalf("freshly submitted tx with an unwindowed id should be Pending")
	}

	publish := func(view store.ProposalsView) {
		tip := handle.Load().TipHeader()
		handle.Store(st.Snapshot(tip, nil, molecule.EpochExt{}, view))
	}

	// A block attaches and the new window's gap now covers the id.
	publish(store.ProposalsView{
		Set: map[molecule.ProposalShortId]struct{}{},
		Gap: map[molecule.ProposalShortId]struct{}{id: {}},
	})
	pool.OnBlockAttached([]molecule.Transaction{{}})
	if !pool.gap.Contains(id) {
		t.Fatalf("expected the tx to move Pending -> Gap once the gap region covers its id")
	}

	// The next attach brings the id into the window proper.
	publish(store.ProposalsView{
		Set: map[molecule.ProposalShortId]struct{}{id: {}},
		Gap: map[molecule.ProposalShortId]struct{}{},
	})
	pool.OnBlockAttached([]molecule.Transaction{{}})
	if !pool.proposed.Contains(id) {
		t.Fatalf("expected the tx to move Gap -> Proposed once its id enters the window")
	}

	// The id falls to or below tip-far without the tx being committed.
	publish(store.ProposalsView{
		Set: map[molecule.ProposalShortId]struct{}{},
		Gap: map[molecule.ProposalShortId]struct{}{},
	})
	pool.ExpireProposals([]molecule.ProposalShortId{id})
	if !pool.pending.Contains(id) {
		t.Fatalf("expected the tx demoted Proposed -> Pending on window expiry")
	}
	if pool.gap.Contains(id) || pool.proposed.Contains(id) {
		t.Fatalf("expired tx must occupy only the Pending sub-pool")
	}
}

// TestPendingSkipsStraightToProposed covers the submit-late path: a tx
// whose id is already in the window when a block attaches moves directly
// Pending -> Proposed without passing through Gap.
func TestPendingSkipsStraightToProposed(t *testing.T) {
	fundingOutPoint := molecule.OutPoint{}
	handle, st := newTestSnapshotHandle(t, map[molecule.OutPoint]uint64{fundingOutPoint: 100000})
	snap := handle.Load()
	genesisHash, _ := snap.GetBlockHash(0)
	genesisBlock, _ := snap.GetBlock(genesisHash)
	fundingTxHash := genesisBlock.Transactions[0].TxHash()
	op := molecule.OutPoint{TxHash: fundingTxHash, Index: 0}

	pool, err := NewTxPool(handle, 25, 1, 1000)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	tx := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: op}).
		Output(molecule.CellOutput{Capacity: 90000}).
		OutputData(nil).
		Build()
	if _, _, err := pool.SubmitTx(tx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := tx.ProposalShortId()

	tip := handle.Load().TipHeader()
	handle.Store(st.Snapshot(tip, nil, molecule.EpochExt{}, store.ProposalsView{
		Set: map[molecule.ProposalShortId]struct{}{id: {}},
		Gap: map[molecule.ProposalShortId]struct{}{},
	}))
	pool.OnBlockAttached([]molecule.Transaction{{}})
	if !pool.proposed.Contains(id) {
		t.Fatalf("expected Pending -> Proposed when the id is already in the window")
	}
	if pool.pending.Contains(id) || pool.gap.Contains(id) {
		t.Fatalf("promoted tx must occupy only the Proposed sub-pool")
	}
}
