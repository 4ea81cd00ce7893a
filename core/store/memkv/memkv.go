// Package memkv is an in-process KVEngine: an immutable map published
// via atomic pointer swap, backed by an append-only write-ahead log
// that is replayed on open for durability across restarts.
package memkv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nervosnetwork/ckb-go/core/store"
)

type record struct {
	deleted bool
	value   []byte
}

type dataMap map[string]record

// Engine is a durable, lock-free-read KVEngine.
type Engine struct {
	cur atomic.Pointer[dataMap]

	walMu sync.Mutex
	wal   *os.File
}

// Open replays walPath (creating it if absent) and returns a ready Engine.
func Open(walPath string) (*Engine, error) {
	f, err := os.OpenFile(walPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	e := &Engine{wal: f}
	m := dataMap{}
	if err := replay(walPath, m); err != nil {
		f.Close()
		return nil, fmt.Errorf("replay wal: %w", err)
	}
	e.cur.Store(&m)
	return e, nil
}

// replay reads every committed batch from the WAL and applies it to m in
// order. A truncated trailing record (partial write from a crash
// mid-append) is detected by a length mismatch and ignored, never
// half-applied.
func replay(path string, m dataMap) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		var recLen uint32
		if err := binary.Read(r, binary.LittleEndian, &recLen); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}
		buf := make([]byte, recLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			// Truncated tail: stop replaying, as if this batch never
			// happened.
			return nil
		}
		applyEncodedBatch(m, buf)
	}
}

// encode a batch of ops as: count, then per-op: 1-byte kind, keylen+key,
// (for puts) vallen+value.
func encodeBatch(ops []op) []byte {
	var buf []byte
	put32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	put32(uint32(len(ops)))
	for _, o := range ops {
		if o.del {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		put32(uint32(len(o.key)))
		buf = append(buf, o.key...)
		if !o.del {
			put32(uint32(len(o.val)))
			buf = append(buf, o.val...)
		}
	}
	return buf
}

func applyEncodedBatch(m dataMap, buf []byte) {
	pos := 0
	u32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		return v
	}
	count := u32()
	for i := uint32(0); i < count; i++ {
		kind := buf[pos]
		pos++
		klen := u32()
		key := buf[pos : pos+int(klen)]
		pos += int(klen)
		if kind == 1 {
			m[string(key)] = record{deleted: true}
			continue
		}
		vlen := u32()
		val := buf[pos : pos+int(vlen)]
		pos += int(vlen)
		m[string(key)] = record{value: append([]byte(nil), val...)}
	}
}

type op struct {
	key []byte
	val []byte
	del bool
}

// Get reads the latest published generation.
func (e *Engine) Get(key []byte) ([]byte, bool) {
	m := *e.cur.Load()
	rec, ok := m[string(key)]
	if !ok || rec.deleted {
		return nil, false
	}
	return rec.value, true
}

// Close flushes and closes the WAL file.
func (e *Engine) Close() error {
	e.walMu.Lock()
	defer e.walMu.Unlock()
	return e.wal.Close()
}

// batch accumulates ops and commits them durably before publishing a new
// generation.
type batch struct {
	e   *Engine
	ops []op
}

func (e *Engine) NewBatch() store.Batch { return &batch{e: e} }

func (b *batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), val: append([]byte(nil), value...)})
}

func (b *batch) Delete(key []byte) {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), del: true})
}

// Commit fsyncs the WAL append before publishing the new generation, so a
// crash before fsync returns leaves the previous generation intact.
func (b *batch) Commit() error {
	if len(b.ops) == 0 {
		return nil
	}
	encoded := encodeBatch(b.ops)

	b.e.walMu.Lock()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
	if _, err := b.e.wal.Write(lenBuf[:]); err != nil {
		b.e.walMu.Unlock()
		return fmt.Errorf("wal append length: %w", err)
	}
	if _, err := b.e.wal.Write(encoded); err != nil {
		b.e.walMu.Unlock()
		return fmt.Errorf("wal append body: %w", err)
	}
	if err := b.e.wal.Sync(); err != nil {
		b.e.walMu.Unlock()
		return fmt.Errorf("wal sync: %w", err)
	}
	b.e.walMu.Unlock()

	old := *b.e.cur.Load()
	next := make(dataMap, len(old)+len(b.ops))
	for k, v := range old {
		next[k] = v
	}
	applyEncodedBatch(next, encoded)
	b.e.cur.Store(&next)
	return nil
}

// readView pins one published generation.
type readView struct {
	m dataMap
}

func (e *Engine) NewReadView() store.ReadView {
	return &readView{m: *e.cur.Load()}
}

func (v *readView) Get(key []byte) ([]byte, bool) {
	rec, ok := v.m[string(key)]
	if !ok || rec.deleted {
		return nil, false
	}
	return rec.value, true
}

func (v *readView) Iterate(prefix []byte, fn func(key, value []byte) bool) {
	keys := make([]string, 0, len(v.m))
	p := string(prefix)
	for k, rec := range v.m {
		if rec.deleted {
			continue
		}
		if len(k) >= len(p) && k[:len(p)] == p {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), v.m[k].value) {
			return
		}
	}
}
