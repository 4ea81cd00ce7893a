package freezer

import "encoding/binary"

// indexEntrySize is the on-disk width of one INDEX record: a u32 file id
// plus a u64 end offset, matching the fixed 12-byte layout.
const indexEntrySize = 12

// indexEntry marks where one item's data ends: file_id identifies the
// blkNNNNNN data file and offset is the byte offset immediately after the
// item's last byte within that file.
type indexEntry struct {
	fileID uint32
	offset uint64
}

func (e indexEntry) marshal() []byte {
	buf := make([]byte, indexEntrySize)
	binary.LittleEndian.PutUint32(buf[:4], e.fileID)
	binary.LittleEndian.PutUint64(buf[4:], e.offset)
	return buf
}

func unmarshalIndexEntry(buf []byte) indexEntry {
	return indexEntry{
		fileID: binary.LittleEndian.Uint32(buf[:4]),
		offset: binary.LittleEndian.Uint64(buf[4:]),
	}
}
