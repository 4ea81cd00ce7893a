// Package sync drives header-first block download against peers,
// serializes submission into the chain service, and decides when the
// node exits initial block download (IBD).
package sync

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nervosnetwork/ckb-go/core/molecule"
)

// BlockStatus is a bitset of what the node knows about a block hash.
// Transitions are monotone except that BlockInvalid poisons the block and
// every descendant for the lifetime of the process.
type BlockStatus uint8

const (
	BlockStatusUnknown     BlockStatus = 0
	BlockStatusHeaderValid BlockStatus = 1 << (iota - 1)
	BlockStatusReceived
	BlockStatusValid
	BlockStatusStored
	BlockStatusInvalid
)

func (s BlockStatus) Has(flag BlockStatus) bool { return s&flag != 0 }

// BlockStatusMap is the shared map of block_hash -> BlockStatus. Ordinary
// statuses live in a capacity-bounded LRU cache, which drops the least
// recently used entry when full. Poisoned (BlockStatusInvalid) hashes are
// kept in a separate set that the LRU never touches, so a poison mark
// survives as long as the process does.
type BlockStatusMap struct {
	mu       sync.Mutex
	cache    *lru.Cache[molecule.Byte32, BlockStatus]
	poisoned map[molecule.Byte32]struct{}
	parent   map[molecule.Byte32]molecule.Byte32
}

func NewBlockStatusMap(capacity int) (*BlockStatusMap, error) {
	cache, err := lru.New[molecule.Byte32, BlockStatus](capacity)
	if err != nil {
		return nil, err
	}
	return &BlockStatusMap{
		cache:    cache,
		poisoned: make(map[molecule.Byte32]struct{}),
		parent:   make(map[molecule.Byte32]molecule.Byte32),
	}, nil
}

// Get reports the known status of hash, consulting the poison set first
// since poison outlives LRU eviction.
func (m *BlockStatusMap) Get(hash molecule.Byte32) BlockStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poisoned[hash]; ok {
		return BlockStatusInvalid
	}
	if s, ok := m.cache.Get(hash); ok {
		return s
	}
	return BlockStatusUnknown
}

// Set records hash's parent link (for poison propagation) and status.
func (m *BlockStatusMap) Set(hash, parent molecule.Byte32, status BlockStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parent[hash] = parent
	if status == BlockStatusInvalid {
		m.poison(hash)
		return
	}
	m.cache.Add(hash, status)
}

// poison marks hash and every descendant reachable via the recorded
// parent links as BlockStatusInvalid, for the remaining lifetime of the
// process.
func (m *BlockStatusMap) poison(hash molecule.Byte32) {
	m.poisoned[hash] = struct{}{}
	m.cache.Remove(hash)
	for child, parent := range m.parent {
		if parent == hash {
			if _, already := m.poisoned[child]; !already {
				m.poison(child)
			}
		}
	}
}

// IsPoisoned reports whether hash or any recorded ancestor was marked
// BlockStatusInvalid.
func (m *BlockStatusMap) IsPoisoned(hash molecule.Byte32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.poisoned[hash]
	return ok
}
