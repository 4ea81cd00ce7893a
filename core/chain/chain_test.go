package chain

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/nervosnetwork/ckb-go/core/consensus"
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

// chainBuilder inserts a simple linear or branching block graph directly
// (bypassing ChainService) so fork-detection tests can set up arbitrary
// topologies without fighting compact_target arithmetic.
type chainBuilder struct {
	t *testing.T
	s *store.Store
}

func (cb *chainBuilder) block(number uint64, parent molecule.Byte32, nonce byte) molecule.Block {
	h := molecule.NewHeaderBuilder().Number(number).ParentHash(parent).Nonce([16]byte{nonce}).Build()
	b := molecule.Block{Header: h}
	txn := cb.s.BeginTransaction()
	txn.InsertBlock(b)
	if err := txn.Commit(); err != nil {
		cb.t.Fatalf("insert block %d: %v", number, err)
	}
	return b
}

// TestFindForkCase1: two competing forks
// from genesis, then FindFork walking back to the shared genesis.
func TestFindForkCase1(t *testing.T) {
	s := newTestStore(t)
	cb := &chainBuilder{t: t, s: s}

	genesis := cb.block(0, molecule.Byte32{}, 0)
	a1 := cb.block(1, genesis.BlockHash(), 1)
	a2 := cb.block(2, a1.BlockHash(), 1)
	a3 := cb.block(3, a2.BlockHash(), 1)
	a4 := cb.block(4, a3.BlockHash(), 1)

	b1 := cb.block(1, genesis.BlockHash(), 2)
	b2 := cb.block(2, b1.BlockHash(), 2)
	b3 := cb.block(3, b2.BlockHash(), 2)
	b4 := cb.block(4, b3.BlockHash(), 2)

	fc, err := FindFork(s, a4.BlockHash(), b4.BlockHash())
	if err != nil {
		t.Fatalf("find fork: %v", err)
	}
	wantDetached := []molecule.Block{a1, a2, a3, a4}
	wantAttached := []molecule.Block{b1, b2, b3, b4}
	assertBlockSeq(t, "detached", fc.Detached, wantDetached)
	assertBlockSeq(t, "attached", fc.Attached, wantAttached)
}

// TestFindForkCase2 mirrors "find-fork case 2": the candidate branches off
// a non-genesis ancestor, and only the blocks past that ancestor differ.
func TestFindForkCase2(t *testing.T) {
	s := newTestStore(t)
	cb := &chainBuilder{t: t, s: s}

	genesis := cb.block(0, molecule.Byte32{}, 0)
	a1 := cb.block(1, genesis.BlockHash(), 1)
	a2 := cb.block(2, a1.BlockHash(), 1)
	a3 := cb.block(3, a2.BlockHash(), 1)
	a4 := cb.block(4, a3.BlockHash(), 1)

	b2 := cb.block(2, a1.BlockHash(), 2)
	b3 := cb.block(3, b2.BlockHash(), 2)
	b4 := cb.block(4, b3.BlockHash(), 2)
	b5 := cb.block(5, b4.BlockHash(), 2)

	fc, err := FindFork(s, a4.BlockHash(), b5.BlockHash())
	if err != nil {
		t.Fatalf("find fork: %v", err)
	}
	assertBlockSeq(t, "detached", fc.Detached, []molecule.Block{a2, a3, a4})
	assertBlockSeq(t, "attached", fc.Attached, []molecule.Block{b2, b3, b4, b5})
}

func assertBlockSeq(t *testing.T, label string, got, want []molecule.Block) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d blocks, got %d", label, len(want), len(got))
	}
	for i := range want {
		if got[i].BlockHash() != want[i].BlockHash() {
			t.Fatalf("%s[%d]: expected block number %d, got %d", label, i, want[i].Header.Number, got[i].Header.Number)
		}
	}
}

func TestShouldSwitchTieBreak(t *testing.T) {
	h1 := molecule.Byte32{1}
	h2 := molecule.Byte32{2}

	// Strictly greater total_difficulty wins regardless of other fields.
	if !ShouldSwitch(big.NewInt(470), big.NewInt(400), 100, 50, h2, h1) {
		t.Fatalf("expected switch: candidate has strictly greater total difficulty")
	}
	if ShouldSwitch(big.NewInt(370), big.NewInt(400), 0, 0, h2, h1) {
		t.Fatalf("expected no switch: candidate total difficulty is lower")
	}
	// Equal difficulty: earlier received_at_ms wins.
	if !ShouldSwitch(big.NewInt(400), big.NewInt(400), 10, 20, h2, h1) {
		t.Fatalf("expected switch: candidate received earlier")
	}
	if ShouldSwitch(big.NewInt(400), big.NewInt(400), 20, 10, h2, h1) {
		t.Fatalf("expected no switch: candidate received later")
	}
	// Equal difficulty and received_at_ms: lexicographically smaller hash wins.
	if !ShouldSwitch(big.NewInt(400), big.NewInt(400), 10, 10, h1, h2) {
		t.Fatalf("expected switch: candidate hash is lexicographically smaller")
	}
}

func id(last byte) molecule.ProposalShortId {
	var pid molecule.ProposalShortId
	pid[9] = last
	return pid
}

func idWithPrefix(prefixFirst byte, last byte) molecule.ProposalShortId {
	var pid molecule.ProposalShortId
	pid[0] = prefixFirst
	pid[9] = last
	return pid
}

// TestProposalTableAcrossReorg: build chain 1..11
// with one proposal id per height, reorg back to height 3 and regrow with
// different proposal ids at heights 4-5, then check the view at tip=5.
func TestProposalTableAcrossReorg(t *testing.T) {
	window := consensus.ProposalWindow{Far: 3, Near: 2}
	table := NewProposalTable(window)

	for i := uint64(1); i <= 11; i++ {
		b := molecule.Block{
			Header:    molecule.NewHeaderBuilder().Number(i).Build(),
			Proposals: []molecule.ProposalShortId{id(byte(i))},
		}
		table.Insert(b)
	}

	for i := uint64(11); i > 3; i-- {
		table.Remove(molecule.Block{Header: molecule.NewHeaderBuilder().Number(i).Build()})
	}
	for i := uint64(4); i <= 5; i++ {
		b := molecule.Block{
			Header:    molecule.NewHeaderBuilder().Number(i).Build(),
			Proposals: []molecule.ProposalShortId{idWithPrefix(1, byte(i))},
		}
		table.Insert(b)
	}

	view := table.View(5)
	wantSet := map[molecule.ProposalShortId]struct{}{
		id(3):             {},
		idWithPrefix(1, 4): {},
	}
	wantGap := map[molecule.ProposalShortId]struct{}{
		idWithPrefix(1, 5): {},
	}
	if !sameIdSet(view.Set, wantSet) {
		t.Fatalf("unexpected set: got %v want %v", view.Set, wantSet)
	}
	if !sameIdSet(view.Gap, wantGap) {
		t.Fatalf("unexpected gap: got %v want %v", view.Gap, wantGap)
	}
}

func sameIdSet(a, b map[molecule.ProposalShortId]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// TestChainServiceLinearGrowth exercises the ProcessBlock pipeline end to
// end for a simple non-forking chain: genesis then one child.
func TestChainServiceLinearGrowth(t *testing.T) {
	s := newTestStore(t)
	genesis := molecule.Block{Header: molecule.NewHeaderBuilder().Number(0).Build()}

	var notifications []Notification
	svc := NewChainService(s, store.NewSnapshotHandle(nil), NewProposalTable(consensus.ProposalWindow{Far: 10, Near: 2}), consensus.DefaultParams(),
		WithNotifyFunc(func(n Notification) { notifications = append(notifications, n) }))
	svc.Start()
	defer svc.Stop()

	status, err := svc.ProcessBlock(genesis, 0)
	if err != nil {
		t.Fatalf("process genesis: %v", err)
	}
	if status != StatusAccepted {
		t.Fatalf("expected genesis accepted, got %v", status)
	}

	// A nonzero compact_target gives the child strictly greater total
	// difficulty than genesis's zero-target block, so the switch decision
	// in ShouldSwitch is deterministic regardless of received_at_ms ties.
	child := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).ParentHash(genesis.BlockHash()).CompactTarget(0x03008000).Build()}
	status, err = svc.ProcessBlock(child, 0)
	if err != nil {
		t.Fatalf("process child: %v", err)
	}
	if status != StatusAccepted {
		t.Fatalf("expected child accepted, got %v", status)
	}

	orphan := molecule.Block{Header: molecule.NewHeaderBuilder().Number(5).ParentHash(molecule.Byte32{9, 9}).Build()}
	status, err = svc.ProcessBlock(orphan, 0)
	if err != nil {
		t.Fatalf("process orphan: %v", err)
	}
	if status != StatusRequiresParent {
		t.Fatalf("expected orphan to require parent, got %v", status)
	}

	status, err = svc.ProcessBlock(genesis, 0)
	if err != nil {
		t.Fatalf("reprocess genesis: %v", err)
	}
	if status != StatusDuplicate {
		t.Fatalf("expected duplicate, got %v", status)
	}

	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications (genesis + child attach), got %d", len(notifications))
	}
}

// TestProposalTablePruneReturnsExpired: pruning the retained range must
// report exactly the ids that fell out, since the tx pool demotes those
// transactions back to Pending.
func TestProposalTablePruneReturnsExpired(t *testing.T) {
	table := NewProposalTable(consensus.ProposalWindow{Far: 3, Near: 2})
	for i := uint64(1); i <= 6; i++ {
		table.Insert(molecule.Block{
			Header:    molecule.NewHeaderBuilder().Number(i).Build(),
			Proposals: []molecule.ProposalShortId{id(byte(i))},
		})
	}

	expired := table.Prune(3)
	want := map[molecule.ProposalShortId]struct{}{id(1): {}, id(2): {}, id(3): {}}
	got := map[molecule.ProposalShortId]struct{}{}
	for _, e := range expired {
		got[e] = struct{}{}
	}
	if !sameIdSet(got, want) {
		t.Fatalf("expired ids = %v, want heights 1-3", expired)
	}
	if more := table.Prune(3); len(more) != 0 {
		t.Fatalf("second prune at the same height should expire nothing, got %v", more)
	}

	view := table.View(5)
	if _, gone := view.Set[id(2)]; gone {
		t.Fatalf("pruned height must no longer contribute to the window view")
	}
}
