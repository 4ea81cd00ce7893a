package molecule

// TransactionBuilder provides chained construction, used mostly by
// tests and block-template assembly.
type TransactionBuilder struct {
	tx Transaction
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{tx: Transaction{Version: 0}}
}

func (b *TransactionBuilder) CellDep(d CellDep) *TransactionBuilder {
	b.tx.CellDeps = append(b.tx.CellDeps, d)
	return b
}

func (b *TransactionBuilder) HeaderDep(h Byte32) *TransactionBuilder {
	b.tx.HeaderDeps = append(b.tx.HeaderDeps, h)
	return b
}

func (b *TransactionBuilder) Input(in CellInput) *TransactionBuilder {
	b.tx.Inputs = append(b.tx.Inputs, in)
	return b
}

func (b *TransactionBuilder) Output(o CellOutput) *TransactionBuilder {
	b.tx.Outputs = append(b.tx.Outputs, o)
	return b
}

func (b *TransactionBuilder) OutputData(d []byte) *TransactionBuilder {
	b.tx.OutputsData = append(b.tx.OutputsData, d)
	return b
}

func (b *TransactionBuilder) Witness(w []byte) *TransactionBuilder {
	b.tx.Witnesses = append(b.tx.Witnesses, w)
	return b
}

func (b *TransactionBuilder) Build() Transaction {
	return b.tx
}

// HeaderBuilder mirrors TransactionBuilder for Header construction.
type HeaderBuilder struct {
	h Header
}

func NewHeaderBuilder() *HeaderBuilder { return &HeaderBuilder{} }

func (b *HeaderBuilder) Number(n uint64) *HeaderBuilder       { b.h.Number = n; return b }
func (b *HeaderBuilder) ParentHash(h Byte32) *HeaderBuilder   { b.h.ParentHash = h; return b }
func (b *HeaderBuilder) Timestamp(ts uint64) *HeaderBuilder   { b.h.Timestamp = ts; return b }
func (b *HeaderBuilder) CompactTarget(t uint32) *HeaderBuilder {
	b.h.CompactTarget = t
	return b
}
func (b *HeaderBuilder) Epoch(e uint64) *HeaderBuilder { b.h.Epoch = e; return b }
func (b *HeaderBuilder) TransactionsRoot(h Byte32) *HeaderBuilder {
	b.h.TransactionsRoot = h
	return b
}
func (b *HeaderBuilder) ProposalsHash(h Byte32) *HeaderBuilder {
	b.h.ProposalsHash = h
	return b
}
func (b *HeaderBuilder) Dao(h Byte32) *HeaderBuilder { b.h.Dao = h; return b }
func (b *HeaderBuilder) Nonce(n [16]byte) *HeaderBuilder {
	b.h.Nonce = n
	return b
}

func (b *HeaderBuilder) Build() Header { return b.h }
