package molecule

// Marshal encodes a Script to its canonical byte layout.
func (s Script) Marshal() []byte {
	w := newWriter()
	w.fixed(s.CodeHash[:])
	w.byte(byte(s.HashType))
	w.bytesField(s.Args)
	return w.bytes()
}

func unmarshalScript(b []byte) Script {
	r := newReader(b)
	var s Script
	copy(s.CodeHash[:], r.fixed(32))
	s.HashType = HashType(r.byte())
	s.Args = append([]byte(nil), r.bytesField()...)
	return s
}

func (o OutPoint) Marshal() []byte {
	w := newWriter()
	w.fixed(o.TxHash[:])
	w.u32(o.Index)
	return w.bytes()
}

// UnmarshalOutPoint decodes an OutPoint previously written by Marshal.
func UnmarshalOutPoint(b []byte) OutPoint { return unmarshalOutPoint(b) }

func unmarshalOutPoint(b []byte) OutPoint {
	r := newReader(b)
	var o OutPoint
	copy(o.TxHash[:], r.fixed(32))
	o.Index = r.u32()
	return o
}

func (d CellDep) Marshal() []byte {
	w := newWriter()
	w.fixed(d.OutPoint.Marshal())
	w.byte(byte(d.DepType))
	return w.bytes()
}

func unmarshalCellDep(b []byte) CellDep {
	r := newReader(b)
	var d CellDep
	d.OutPoint = unmarshalOutPoint(r.fixed(36))
	d.DepType = DepType(r.byte())
	return d
}

func (c CellOutput) Marshal() []byte {
	w := newWriter()
	w.u64(c.Capacity)
	w.bytesField(c.Lock.Marshal())
	if c.Type != nil {
		w.byte(1)
		w.bytesField(c.Type.Marshal())
	} else {
		w.byte(0)
	}
	return w.bytes()
}

// UnmarshalCellOutput decodes a CellOutput previously written by Marshal.
func UnmarshalCellOutput(b []byte) CellOutput { return unmarshalCellOutput(b) }

func unmarshalCellOutput(b []byte) CellOutput {
	r := newReader(b)
	var c CellOutput
	c.Capacity = r.u64()
	c.Lock = unmarshalScript(r.bytesField())
	if r.byte() == 1 {
		t := unmarshalScript(r.bytesField())
		c.Type = &t
	}
	return c
}

func (i CellInput) Marshal() []byte {
	w := newWriter()
	w.fixed(i.PreviousOutput.Marshal())
	w.u64(i.Since)
	return w.bytes()
}

func unmarshalCellInput(b []byte) CellInput {
	r := newReader(b)
	var i CellInput
	i.PreviousOutput = unmarshalOutPoint(r.fixed(36))
	i.Since = r.u64()
	return i
}

// marshalBody encodes the transaction; includeWitnesses controls whether
// TxHash (false) or WitnessHash (true) semantics apply.
func (t Transaction) marshalBody(includeWitnesses bool) []byte {
	w := newWriter()
	w.u32(t.Version)

	deps := make([][]byte, len(t.CellDeps))
	for i, d := range t.CellDeps {
		deps[i] = d.Marshal()
	}
	w.table(deps)

	hdeps := make([][]byte, len(t.HeaderDeps))
	for i, h := range t.HeaderDeps {
		hdeps[i] = append([]byte(nil), h[:]...)
	}
	w.table(hdeps)

	ins := make([][]byte, len(t.Inputs))
	for i, in := range t.Inputs {
		ins[i] = in.Marshal()
	}
	w.table(ins)

	outs := make([][]byte, len(t.Outputs))
	for i, o := range t.Outputs {
		outs[i] = o.Marshal()
	}
	w.table(outs)

	odata := make([][]byte, len(t.OutputsData))
	for i, d := range t.OutputsData {
		odata[i] = d
	}
	w.table(odata)

	if includeWitnesses {
		wit := make([][]byte, len(t.Witnesses))
		for i, d := range t.Witnesses {
			wit[i] = d
		}
		w.table(wit)
	}
	return w.bytes()
}

// Marshal encodes the transaction including witnesses (full wire form).
func (t Transaction) Marshal() []byte {
	return t.marshalBody(true)
}

// UnmarshalTransaction decodes a transaction previously written by Marshal.
func UnmarshalTransaction(b []byte) Transaction {
	r := newReader(b)
	var t Transaction
	t.Version = r.u32()
	for _, it := range r.table() {
		t.CellDeps = append(t.CellDeps, unmarshalCellDep(it))
	}
	for _, it := range r.table() {
		var h Byte32
		copy(h[:], it)
		t.HeaderDeps = append(t.HeaderDeps, h)
	}
	for _, it := range r.table() {
		t.Inputs = append(t.Inputs, unmarshalCellInput(it))
	}
	for _, it := range r.table() {
		t.Outputs = append(t.Outputs, unmarshalCellOutput(it))
	}
	t.OutputsData = r.table()
	t.Witnesses = r.table()
	return t
}

func (h Header) Marshal() []byte {
	w := newWriter()
	w.u32(h.Version)
	w.fixed(h.ParentHash[:])
	w.u64(h.Timestamp)
	w.u64(h.Number)
	w.fixed(h.TransactionsRoot[:])
	w.fixed(h.ProposalsHash[:])
	w.u32(h.CompactTarget)
	w.fixed(h.ExtraHash[:])
	w.u64(h.Epoch)
	w.fixed(h.Dao[:])
	w.fixed(h.Nonce[:])
	return w.bytes()
}

// UnmarshalHeader decodes a header previously written by Marshal.
func UnmarshalHeader(b []byte) Header {
	r := newReader(b)
	var h Header
	h.Version = r.u32()
	copy(h.ParentHash[:], r.fixed(32))
	h.Timestamp = r.u64()
	h.Number = r.u64()
	copy(h.TransactionsRoot[:], r.fixed(32))
	copy(h.ProposalsHash[:], r.fixed(32))
	h.CompactTarget = r.u32()
	copy(h.ExtraHash[:], r.fixed(32))
	h.Epoch = r.u64()
	copy(h.Dao[:], r.fixed(32))
	copy(h.Nonce[:], r.fixed(16))
	return h
}

func (u UncleBlock) Marshal() []byte {
	w := newWriter()
	w.bytesField(u.Header.Marshal())
	props := make([][]byte, len(u.Proposals))
	for i, p := range u.Proposals {
		props[i] = append([]byte(nil), p[:]...)
	}
	w.table(props)
	return w.bytes()
}

func unmarshalUncleBlock(b []byte) UncleBlock {
	r := newReader(b)
	var u UncleBlock
	u.Header = UnmarshalHeader(r.bytesField())
	for _, it := range r.table() {
		var p ProposalShortId
		copy(p[:], it)
		u.Proposals = append(u.Proposals, p)
	}
	return u
}

func (bl Block) Marshal() []byte {
	w := newWriter()
	w.bytesField(bl.Header.Marshal())
	uncles := make([][]byte, len(bl.Uncles))
	for i, u := range bl.Uncles {
		uncles[i] = u.Marshal()
	}
	w.table(uncles)
	txs := make([][]byte, len(bl.Transactions))
	for i, t := range bl.Transactions {
		txs[i] = t.Marshal()
	}
	w.table(txs)
	props := make([][]byte, len(bl.Proposals))
	for i, p := range bl.Proposals {
		props[i] = append([]byte(nil), p[:]...)
	}
	w.table(props)
	w.bytesField(bl.Extension)
	return w.bytes()
}

// UnmarshalBlock decodes a block previously written by Marshal.
func UnmarshalBlock(b []byte) Block {
	r := newReader(b)
	var bl Block
	bl.Header = UnmarshalHeader(r.bytesField())
	for _, it := range r.table() {
		bl.Uncles = append(bl.Uncles, unmarshalUncleBlock(it))
	}
	for _, it := range r.table() {
		bl.Transactions = append(bl.Transactions, UnmarshalTransaction(it))
	}
	for _, it := range r.table() {
		var p ProposalShortId
		copy(p[:], it)
		bl.Proposals = append(bl.Proposals, p)
	}
	bl.Extension = append([]byte(nil), r.bytesField()...)
	return bl
}

func (e EpochExt) Marshal() []byte {
	w := newWriter()
	w.u64(e.Number)
	w.u64(e.Length)
	w.u64(e.StartNumber)
	w.u32(e.CompactTarget)
	w.fixed(e.PreviousEpochHashRate[:])
	w.fixed(e.LastBlockHashInPreviousEpoch[:])
	return w.bytes()
}

// UnmarshalEpochExt decodes an EpochExt previously written by Marshal.
func UnmarshalEpochExt(b []byte) EpochExt {
	r := newReader(b)
	var e EpochExt
	e.Number = r.u64()
	e.Length = r.u64()
	e.StartNumber = r.u64()
	e.CompactTarget = r.u32()
	copy(e.PreviousEpochHashRate[:], r.fixed(16))
	copy(e.LastBlockHashInPreviousEpoch[:], r.fixed(32))
	return e
}
