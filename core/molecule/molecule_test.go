package molecule

import (
	"bytes"
	"testing"
)

func sampleTx() Transaction {
	return NewTransactionBuilder().
		CellDep(CellDep{OutPoint: OutPoint{Index: 1}, DepType: DepTypeCode}).
		HeaderDep(Byte32{1, 2, 3}).
		Input(CellInput{PreviousOutput: OutPoint{Index: 0}, Since: 42}).
		Output(CellOutput{Capacity: 1000, Lock: Script{Args: []byte("lock")}}).
		OutputData([]byte("data")).
		Witness([]byte("witness")).
		Build()
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := sampleTx()
	encoded := tx.Marshal()
	decoded := UnmarshalTransaction(encoded)

	if decoded.Version != tx.Version {
		t.Fatalf("version mismatch")
	}
	if len(decoded.Inputs) != 1 || decoded.Inputs[0].Since != 42 {
		t.Fatalf("input mismatch: %+v", decoded.Inputs)
	}
	if len(decoded.Outputs) != 1 || decoded.Outputs[0].Capacity != 1000 {
		t.Fatalf("output mismatch: %+v", decoded.Outputs)
	}
	if !bytes.Equal(decoded.OutputsData[0], []byte("data")) {
		t.Fatalf("outputs_data mismatch")
	}
	if !bytes.Equal(decoded.Witnesses[0], []byte("witness")) {
		t.Fatalf("witness mismatch")
	}
}

func TestTxHashExcludesWitnesses(t *testing.T) {
	tx := sampleTx()
	h1 := tx.TxHash()
	tx.Witnesses = append(tx.Witnesses, []byte("more"))
	h2 := tx.TxHash()
	if h1 != h2 {
		t.Fatalf("tx_hash must not depend on witnesses")
	}
	w1 := tx.WitnessHash()
	tx.Witnesses = tx.Witnesses[:len(tx.Witnesses)-1]
	w2 := tx.WitnessHash()
	if w1 == w2 {
		t.Fatalf("witness_hash must depend on witnesses")
	}
}

func TestProposalShortIdIsTxHashPrefix(t *testing.T) {
	tx := sampleTx()
	h := tx.TxHash()
	id := tx.ProposalShortId()
	if !bytes.Equal(id[:], h[:10]) {
		t.Fatalf("short id must be first 10 bytes of tx_hash")
	}
}

func TestScriptHashDeterministic(t *testing.T) {
	s := Script{Args: []byte("a")}
	if s.ScriptHash() != s.ScriptHash() {
		t.Fatalf("script hash must be deterministic")
	}
	s2 := Script{Args: []byte("b")}
	if s.ScriptHash() == s2.ScriptHash() {
		t.Fatalf("different scripts must hash differently")
	}
}

func TestHeaderRoundTripAndHash(t *testing.T) {
	h := NewHeaderBuilder().Number(7).Timestamp(100).CompactTarget(0x1d00ffff).Build()
	encoded := h.Marshal()
	decoded := UnmarshalHeader(encoded)
	if decoded.Number != 7 || decoded.Timestamp != 100 {
		t.Fatalf("header round trip mismatch: %+v", decoded)
	}
	if h.BlockHash() != decoded.BlockHash() {
		t.Fatalf("block hash must match after round trip")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	b := Block{
		Header:       NewHeaderBuilder().Number(1).Build(),
		Transactions: []Transaction{sampleTx()},
		Proposals:    []ProposalShortId{{1, 2, 3}},
		Extension:    []byte("ext"),
	}
	decoded := UnmarshalBlock(b.Marshal())
	if len(decoded.Transactions) != 1 {
		t.Fatalf("expected 1 tx, got %d", len(decoded.Transactions))
	}
	if len(decoded.Proposals) != 1 || decoded.Proposals[0] != b.Proposals[0] {
		t.Fatalf("proposal mismatch")
	}
	if !bytes.Equal(decoded.Extension, b.Extension) {
		t.Fatalf("extension mismatch")
	}
}

func TestEpochExtRoundTrip(t *testing.T) {
	e := EpochExt{Number: 3, Length: 1800, StartNumber: 100, CompactTarget: 42}
	decoded := UnmarshalEpochExt(e.Marshal())
	if decoded != e {
		t.Fatalf("epoch ext round trip mismatch: %+v vs %+v", decoded, e)
	}
}
