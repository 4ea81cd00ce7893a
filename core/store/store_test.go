package store_test

import (
	"path/filepath"
	"testing"

	"github.com/nervosnetwork/ckb-go/core/molecule"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/store/memkv"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	eng, err := memkv.Open(filepath.Join(dir, "wal"))
	if err != nil {
		t.Fatalf("open memkv: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return store.NewStore(eng)
}

func TestInsertAndGetBlock(t *testing.T) {
	s := newTestStore(t)
	b := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build()}
	txn := s.BeginTransaction()
	txn.InsertBlock(b)
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok := s.GetBlock(b.BlockHash())
	if !ok {
		t.Fatalf("expected block to be found")
	}
	if got.Header.Number != 1 {
		t.Fatalf("expected number 1, got %d", got.Header.Number)
	}
}

func TestAttachDetachCellSet(t *testing.T) {
	s := newTestStore(t)
	tx := molecule.NewTransactionBuilder().
		Output(molecule.CellOutput{Capacity: 100}).
		OutputData(nil).
		Build()
	b := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build(), Transactions: []molecule.Transaction{tx}}

	txn := s.BeginTransaction()
	txn.InsertBlock(b)
	if err := txn.AttachBlock(b, molecule.Byte32{}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	op := molecule.OutPoint{TxHash: tx.TxHash(), Index: 0}
	if _, ok := s.GetCellMeta(op); !ok {
		t.Fatalf("expected cell to be live after attach")
	}
	if hash, ok := s.GetBlockHash(1); !ok || hash != b.BlockHash() {
		t.Fatalf("expected number index to resolve to block hash")
	}

	detachTxn := s.BeginTransaction()
	if err := detachTxn.DetachBlock(b); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := detachTxn.Commit(); err != nil {
		t.Fatalf("commit detach: %v", err)
	}
	if _, ok := s.GetCellMeta(op); ok {
		t.Fatalf("expected cell to be dead after detach")
	}
	if _, ok := s.GetBlockHash(1); ok {
		t.Fatalf("expected number index removed after detach")
	}
}

func TestDetachRestoresSpentCell(t *testing.T) {
	s := newTestStore(t)
	fundingTx := molecule.NewTransactionBuilder().
		Output(molecule.CellOutput{Capacity: 500}).
		OutputData(nil).
		Build()
	b1 := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build(), Transactions: []molecule.Transaction{fundingTx}}

	txn1 := s.BeginTransaction()
	txn1.InsertBlock(b1)
	if err := txn1.AttachBlock(b1, molecule.Byte32{}); err != nil {
		t.Fatalf("attach b1: %v", err)
	}
	if err := txn1.Commit(); err != nil {
		t.Fatalf("commit b1: %v", err)
	}

	fundedOutPoint := molecule.OutPoint{TxHash: fundingTx.TxHash(), Index: 0}
	spendTx := molecule.NewTransactionBuilder().
		Input(molecule.CellInput{PreviousOutput: fundedOutPoint}).
		Output(molecule.CellOutput{Capacity: 400}).
		OutputData(nil).
		Build()
	b2 := molecule.Block{Header: molecule.NewHeaderBuilder().Number(2).Build(), Transactions: []molecule.Transaction{spendTx}}

	txn2 := s.BeginTransaction()
	txn2.InsertBlock(b2)
	if err := txn2.AttachBlock(b2, molecule.Byte32{}); err != nil {
		t.Fatalf("attach b2: %v", err)
	}
	if err := txn2.Commit(); err != nil {
		t.Fatalf("commit b2: %v", err)
	}

	if _, ok := s.GetCellMeta(fundedOutPoint); ok {
		t.Fatalf("expected funding cell to be spent after b2 attaches")
	}

	detachTxn := s.BeginTransaction()
	if err := detachTxn.DetachBlock(b2); err != nil {
		t.Fatalf("detach b2: %v", err)
	}
	if err := detachTxn.Commit(); err != nil {
		t.Fatalf("commit detach b2: %v", err)
	}

	restored, ok := s.GetCellMeta(fundedOutPoint)
	if !ok {
		t.Fatalf("expected funding cell restored after detaching its spender")
	}
	if restored.Output.Capacity != 500 {
		t.Fatalf("expected restored cell capacity 500, got %d", restored.Output.Capacity)
	}
	spentOutPoint := molecule.OutPoint{TxHash: spendTx.TxHash(), Index: 0}
	if _, ok := s.GetCellMeta(spentOutPoint); ok {
		t.Fatalf("expected b2's own created cell to be gone after detach")
	}
}

func TestSpecHashStampLifecycle(t *testing.T) {
	s := newTestStore(t)
	if err := s.CheckSpecHash([]byte("v1"), store.SpecHashStrict); err != nil {
		t.Fatalf("fresh store should accept and stamp: %v", err)
	}
	if err := s.CheckSpecHash([]byte("v1"), store.SpecHashStrict); err != nil {
		t.Fatalf("matching stamp should pass: %v", err)
	}
	if err := s.CheckSpecHash([]byte("v2"), store.SpecHashStrict); err == nil {
		t.Fatalf("mismatched stamp should be rejected by default")
	}
	if err := s.CheckSpecHash([]byte("v2"), store.SpecHashSkipCheck); err != nil {
		t.Fatalf("skip-check should bypass mismatch: %v", err)
	}
	if err := s.CheckSpecHash([]byte("v2"), store.SpecHashOverwrite); err != nil {
		t.Fatalf("overwrite should succeed: %v", err)
	}
	if err := s.CheckSpecHash([]byte("v2"), store.SpecHashStrict); err != nil {
		t.Fatalf("overwritten stamp should now match: %v", err)
	}
}

func TestSnapshotPinsVersion(t *testing.T) {
	s := newTestStore(t)
	b1 := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build()}
	txn := s.BeginTransaction()
	txn.InsertBlock(b1)
	txn.AttachBlock(b1, molecule.Byte32{})
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	snap := s.Snapshot(b1.Header, nil, molecule.EpochExt{}, store.ProposalsView{})

	b2 := molecule.Block{Header: molecule.NewHeaderBuilder().Number(2).Build()}
	txn2 := s.BeginTransaction()
	txn2.InsertBlock(b2)
	txn2.AttachBlock(b2, molecule.Byte32{})
	if err := txn2.Commit(); err != nil {
		t.Fatalf("commit2: %v", err)
	}

	if _, ok := snap.GetBlockHash(2); ok {
		t.Fatalf("old snapshot must not observe writes made after it was taken")
	}
	if _, ok := s.GetBlockHash(2); !ok {
		t.Fatalf("live store must observe the new write")
	}
}
