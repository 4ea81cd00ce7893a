package store

import (
	"encoding/binary"

	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// Key schema: short ASCII prefixes keep the engine's flat keyspace
// partitioned without needing column families.
func headerKey(h molecule.Byte32) []byte { return append([]byte("h:"), h[:]...) }
func blockKey(h molecule.Byte32) []byte  { return append([]byte("b:"), h[:]...) }
func extKey(h molecule.Byte32) []byte    { return append([]byte("e:"), h[:]...) }
func cellKey(o molecule.OutPoint) []byte { return append([]byte("c:"), o.Marshal()...) }
func epochIndexKey(h molecule.Byte32) []byte { return append([]byte("ei:"), h[:]...) }
func epochExtKey(h molecule.Byte32) []byte   { return append([]byte("ep:"), h[:]...) }
func undoLogKey(h molecule.Byte32) []byte    { return append([]byte("u:"), h[:]...) }

func numberKey(n uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "n:")
	binary.BigEndian.PutUint64(key[2:], n)
	return key
}

var specHashKey = []byte("spec-hash")
