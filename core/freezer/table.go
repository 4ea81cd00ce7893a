// Package freezer implements the append-only chained-file archive that
// offloads finalized blocks beyond the reorg safety window out of the hot
// store.
package freezer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// MaxFileSize is the rollover threshold for one data file.
const MaxFileSize = 2 * 1024 * 1024 * 1024 // 2 GB

const indexFileName = "INDEX"

// Table is one freezer archive: a chain of blkNNNNNN data files plus one
// INDEX file of fixed-width entries. Item numbers are 1-indexed; index 0
// holds the default zero entry.
type Table struct {
	mu sync.RWMutex

	dir  string
	name string

	index *os.File
	head  *os.File

	headID      uint32
	headBytes   uint64 // bytes written to head so far (== tail entry's offset once durable)
	itemCount   uint64
	maxFileSize uint64

	enc *zstd.Encoder
	dec *zstd.Decoder

	log *logrus.Entry
}

// Open opens (creating if absent) the freezer table rooted at dir/name*,
// running the crash-recovery algorithm before returning.
func Open(dir, name string) (*Table, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	t := &Table{
		dir:         dir,
		name:        name,
		enc:         enc,
		dec:         dec,
		maxFileSize: MaxFileSize,
		log:         logrus.WithField("component", "freezer").WithField("table", name),
	}
	if err := t.openIndex(); err != nil {
		return nil, err
	}
	if err := t.repair(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) indexPath() string { return filepath.Join(t.dir, t.name+"."+indexFileName) }
func (t *Table) dataPath(id uint32) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s.blk%06d", t.name, id))
}

func (t *Table) openIndex() error {
	f, err := os.OpenFile(t.indexPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	t.index = f

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		// Step 1: seed the default zero entry.
		if _, err := f.Write(indexEntry{fileID: 0, offset: 0}.marshal()); err != nil {
			return err
		}
	}
	return nil
}

// repair runs the crash-recovery algorithm over INDEX and the head data file.
func (t *Table) repair() error {
	info, err := t.index.Stat()
	if err != nil {
		return err
	}
	// Step 2: truncate INDEX to a multiple of indexEntrySize.
	truncated := info.Size() - (info.Size() % indexEntrySize)
	if truncated != info.Size() {
		if err := t.index.Truncate(truncated); err != nil {
			return err
		}
	}
	entryCount := uint64(truncated / indexEntrySize)
	if entryCount == 0 {
		if _, err := t.index.WriteAt(indexEntry{}.marshal(), 0); err != nil {
			return err
		}
		entryCount = 1
	}

	for {
		tail, err := t.readIndexEntry(entryCount - 1)
		if err != nil {
			return err
		}
		head, err := os.OpenFile(t.dataPath(tail.fileID), os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return err
		}
		st, err := head.Stat()
		if err != nil {
			head.Close()
			return err
		}
		actual := uint64(st.Size())
		if actual == tail.offset {
			// Step 6: converged.
			t.head = head
			t.headID = tail.fileID
			t.headBytes = actual
			t.itemCount = entryCount - 1
			break
		}
		if actual > tail.offset {
			// Step 4: dangling tail write, truncate back to the recorded offset.
			if err := head.Truncate(int64(tail.offset)); err != nil {
				head.Close()
				return err
			}
			t.head = head
			t.headID = tail.fileID
			t.headBytes = tail.offset
			t.itemCount = entryCount - 1
			break
		}
		// Step 5: actual < expected. The index entry outran the data file
		// (crash between the data write and the index fsync); drop it and
		// retry against the new tail.
		head.Close()
		entryCount--
		if entryCount == 0 {
			return fmt.Errorf("freezer %s: index repair exhausted all entries", t.name)
		}
		if err := t.index.Truncate(int64(entryCount * indexEntrySize)); err != nil {
			return err
		}
	}
	return t.syncAll()
}

func (t *Table) readIndexEntry(i uint64) (indexEntry, error) {
	buf := make([]byte, indexEntrySize)
	if _, err := t.index.ReadAt(buf, int64(i*indexEntrySize)); err != nil {
		return indexEntry{}, err
	}
	return unmarshalIndexEntry(buf), nil
}

// ItemCount reports the current number of durably appended items.
func (t *Table) ItemCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.itemCount
}

// Append writes one item. expectedNumber must equal the table's current
// item count, matching the append-only contract: callers cannot skip or
// overwrite items.
func (t *Table) Append(expectedNumber uint64, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if expectedNumber != t.itemCount {
		return fmt.Errorf("freezer %s: append out of order: expected item %d, got %d", t.name, t.itemCount, expectedNumber)
	}

	compressed := t.enc.EncodeAll(data, nil)

	if t.headBytes+uint64(len(compressed)) > t.maxFileSize {
		if err := t.rollover(); err != nil {
			return err
		}
	}

	// WriteAt with explicit offsets: the file cursors are meaningless
	// after a reopen (repair only ever uses ReadAt/WriteAt/Truncate), so
	// appends are positioned off headBytes/itemCount instead.
	n, err := t.head.WriteAt(compressed, int64(t.headBytes))
	if err != nil {
		return err
	}
	t.headBytes += uint64(n)
	entry := indexEntry{fileID: t.headID, offset: t.headBytes}
	if _, err := t.index.WriteAt(entry.marshal(), int64((t.itemCount+1)*indexEntrySize)); err != nil {
		return err
	}
	t.itemCount++
	return nil
}

func (t *Table) rollover() error {
	if err := t.head.Close(); err != nil {
		return err
	}
	t.headID++
	head, err := os.OpenFile(t.dataPath(t.headID), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	t.head = head
	t.headBytes = 0
	t.log.WithField("file_id", t.headID).Info("freezer rollover")
	return nil
}

// Retrieve reads back item's decompressed bytes. item is 1-indexed.
func (t *Table) Retrieve(item uint64) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if item == 0 || item > t.itemCount {
		return nil, fmt.Errorf("freezer %s: item %d out of bounds (count=%d)", t.name, item, t.itemCount)
	}
	end, err := t.readIndexEntry(item)
	if err != nil {
		return nil, err
	}
	start, err := t.readIndexEntry(item - 1)
	if err != nil {
		return nil, err
	}
	startOffset := start.offset
	if start.fileID != end.fileID {
		startOffset = 0
	}

	var f *os.File
	if end.fileID == t.headID {
		f = t.head
	} else {
		f, err = os.Open(t.dataPath(end.fileID))
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}

	buf := make([]byte, end.offset-startOffset)
	if _, err := f.ReadAt(buf, int64(startOffset)); err != nil {
		return nil, err
	}
	return t.dec.DecodeAll(buf, nil)
}

// SyncAll fsyncs the head data file and the index file.
func (t *Table) SyncAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syncAll()
}

func (t *Table) syncAll() error {
	if err := t.head.Sync(); err != nil {
		return err
	}
	return t.index.Sync()
}

// Close releases the table's open file handles.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dec.Close()
	if err := t.head.Close(); err != nil {
		return err
	}
	return t.index.Close()
}
