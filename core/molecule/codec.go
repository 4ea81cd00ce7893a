package molecule

import (
	"bytes"
	"encoding/binary"
)

// writer accumulates a fixed-layout little-endian encoding. Every
// variable-length field (a byte string or a list of sub-items) is written
// as a 4-byte item/byte count followed by the payload, so the reader can
// walk the buffer back out unambiguously: fixed-layout binary
// serialization, little-endian lengths, no alignment padding.
type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer { return &writer{} }

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) byte(v byte) { w.buf.WriteByte(v) }

func (w *writer) fixed(b []byte) { w.buf.Write(b) }

// bytesField writes a variable-length byte string as a length prefix plus
// the bytes themselves.
func (w *writer) bytesField(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

// table writes a list of pre-encoded, self-delimited items: an item count
// followed by each item's own length prefix and bytes.
func (w *writer) table(items [][]byte) {
	w.u32(uint32(len(items)))
	for _, it := range items {
		w.bytesField(it)
	}
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

// reader walks a writer-produced buffer back out.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) byte() byte {
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *reader) fixed(n int) []byte {
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) bytesField() []byte {
	n := int(r.u32())
	return r.fixed(n)
}

// table reads a list of self-delimited items written by writer.table.
func (r *reader) table() [][]byte {
	count := int(r.u32())
	items := make([][]byte, count)
	for i := range items {
		items[i] = r.bytesField()
	}
	return items
}

func (r *reader) remaining() bool { return r.pos < len(r.buf) }
