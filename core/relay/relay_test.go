package relay

import (
	"testing"
	"time"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

func buildTx(outputCapacity uint64, witnessSalt byte) molecule.Transaction {
	b := molecule.NewTransactionBuilder().
		Output(molecule.CellOutput{Capacity: outputCapacity}).
		OutputData(nil).
		Witness([]byte{witnessSalt})
	return b.Build()
}

func TestShortIDKeysDeterministic(t *testing.T) {
	k0a, k1a := ShortIDKeys(42)
	k0b, k1b := ShortIDKeys(42)
	if k0a != k0b || k1a != k1b {
		t.Fatalf("expected ShortIDKeys to be deterministic for a fixed nonce")
	}
	k0c, _ := ShortIDKeys(43)
	if k0c == k0a {
		t.Fatalf("expected different nonces to derive different keys")
	}
}

func TestReconstructCompleteFromMempool(t *testing.T) {
	cellbase := molecule.Transaction{}
	tx1 := buildTx(100, 1)
	tx2 := buildTx(200, 2)
	block := molecule.Block{
		Header:       molecule.NewHeaderBuilder().Number(1).Build(),
		Transactions: []molecule.Transaction{cellbase, tx1, tx2},
	}
	root := TransactionsRoot(block.Transactions)
	block.Header = molecule.NewHeaderBuilder().Number(1).TransactionsRoot(root).Build()

	cb := BuildCompactBlock(block, 0xdeadbeef)
	if len(cb.Prefilled) != 1 || cb.Prefilled[0].Index != 0 {
		t.Fatalf("expected only the cellbase to be prefilled")
	}
	if len(cb.ShortIds) != 2 {
		t.Fatalf("expected 2 short ids, got %d", len(cb.ShortIds))
	}

	k0, k1 := ShortIDKeys(cb.Nonce)
	idx := NewTxIndex(k0, k1, []molecule.Transaction{tx1, tx2})

	result := Reconstruct(cb, idx)
	if result.Outcome != OutcomeComplete {
		t.Fatalf("expected Complete, got %v (missing=%v)", result.Outcome, result.MissingIndexes)
	}
	if len(result.Block.Transactions) != 3 {
		t.Fatalf("expected 3 reconstructed transactions")
	}
}

func TestReconstructReportsMissingThenMerges(t *testing.T) {
	cellbase := molecule.Transaction{}
	tx1 := buildTx(100, 1)
	tx2 := buildTx(200, 2)
	block := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build(), Transactions: []molecule.Transaction{cellbase, tx1, tx2}}
	root := TransactionsRoot(block.Transactions)
	block.Header = molecule.NewHeaderBuilder().Number(1).TransactionsRoot(root).Build()
	cb := BuildCompactBlock(block, 7)

	k0, k1 := ShortIDKeys(cb.Nonce)
	// Only tx1 is known locally; tx2 is missing.
	idx := NewTxIndex(k0, k1, []molecule.Transaction{tx1})

	result := Reconstruct(cb, idx)
	if result.Outcome != OutcomeAwaitingTransactions {
		t.Fatalf("expected AwaitingTransactions, got %v", result.Outcome)
	}
	if len(result.MissingIndexes) != 1 || result.MissingIndexes[0] != 2 {
		t.Fatalf("expected index 2 missing, got %v", result.MissingIndexes)
	}

	merged := idx.WithExtra([]molecule.Transaction{tx2})
	retry := Reconstruct(cb, merged)
	if retry.Outcome != OutcomeComplete {
		t.Fatalf("expected Complete after merging the fetched transaction, got %v", retry.Outcome)
	}
}

func TestReconstructDetectsCollision(t *testing.T) {
	cellbase := molecule.Transaction{}
	tx1 := buildTx(100, 1)
	block := molecule.Block{Header: molecule.NewHeaderBuilder().Number(1).Build(), Transactions: []molecule.Transaction{cellbase, tx1}}
	cb := BuildCompactBlock(block, 7)

	k0, k1 := ShortIDKeys(cb.Nonce)
	other := buildTx(999, 77)
	idx := &TxIndex{k0: k0, k1: k1, byID: map[ShortID][]molecule.Transaction{
		cb.ShortIds[0]: {tx1, other},
	}}

	result := Reconstruct(cb, idx)
	if result.Outcome != OutcomeCollision {
		t.Fatalf("expected Collision, got %v", result.Outcome)
	}
}

func TestReconstructInvalidOnRootMismatch(t *testing.T) {
	cellbase := molecule.Transaction{}
	tx1 := buildTx(100, 1)
	block := molecule.Block{
		Header:       molecule.NewHeaderBuilder().Number(1).TransactionsRoot(molecule.Byte32{0xff}).Build(),
		Transactions: []molecule.Transaction{cellbase, tx1},
	}
	cb := BuildCompactBlock(block, 7)
	k0, k1 := ShortIDKeys(cb.Nonce)
	idx := NewTxIndex(k0, k1, []molecule.Transaction{tx1})

	result := Reconstruct(cb, idx)
	if result.Outcome != OutcomeInvalid {
		t.Fatalf("expected Invalid on a transactions_root mismatch, got %v", result.Outcome)
	}
}

func TestPendingCompactBlocksExpire(t *testing.T) {
	pc := NewPendingCompactBlocks()
	var hash molecule.Byte32
	hash[0] = 1
	now := time.Now()
	pc.Put(hash, CompactBlock{}, now)

	if expired := pc.Expire(now.Add(time.Second)); len(expired) != 0 {
		t.Fatalf("expected no expiry before the window elapses")
	}
	expired := pc.Expire(now.Add(PendingExpiry + time.Second))
	if len(expired) != 1 || expired[0] != hash {
		t.Fatalf("expected the entry to expire after PendingExpiry")
	}
	if _, ok := pc.Get(hash); ok {
		t.Fatalf("expected the entry to be gone after expiry")
	}
}

func TestAnnounceDedupSuppressesRepeat(t *testing.T) {
	d, err := NewAnnounceDedup(1000)
	if err != nil {
		t.Fatalf("new dedup: %v", err)
	}
	var id molecule.ProposalShortId
	id[0] = 9
	if !d.ShouldAnnounce(id) {
		t.Fatalf("expected the first announcement to proceed")
	}
	if d.ShouldAnnounce(id) {
		t.Fatalf("expected the second announcement of the same id to be suppressed")
	}
}

func TestInflightProposalsWindow(t *testing.T) {
	ip := NewInflightProposals()
	var id molecule.ProposalShortId
	id[0] = 5
	now := time.Now()

	if !ip.ShouldAsk(id, now) {
		t.Fatalf("expected the first ask to proceed")
	}
	if ip.ShouldAsk(id, now.Add(time.Second)) {
		t.Fatalf("expected a repeat ask within the window to be suppressed")
	}
	if !ip.ShouldAsk(id, now.Add(InflightProposalWindow+time.Second)) {
		t.Fatalf("expected an ask past the window to proceed again")
	}
}
