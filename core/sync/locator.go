package sync

import "github.com/nervosnetwork/ckb-go/core/molecule"

// MaxHeadersLen bounds one Headers response; a full batch triggers another
// GetHeaders from the last header received.
const MaxHeadersLen = 2000

// ChainReader is the read-only slice of the store a locator walk needs.
type ChainReader interface {
	GetBlockHash(number uint64) (molecule.Byte32, bool)
	GetBlockHeader(hash molecule.Byte32) (molecule.Header, bool)
}

// BuildLocator returns a sparse list of block hashes stepping back
// exponentially from tipNumber, so a peer can find the fork point in
// O(log N): the first few entries are consecutive, then the stride
// doubles each step, and the genesis hash is always included last.
func BuildLocator(r ChainReader, tipNumber uint64) []molecule.Byte32 {
	var locator []molecule.Byte32
	step := uint64(1)
	height := tipNumber
	for {
		hash, ok := r.GetBlockHash(height)
		if ok {
			locator = append(locator, hash)
		}
		if height == 0 {
			break
		}
		if len(locator) >= 10 {
			step *= 2
		}
		if height < step {
			height = 0
		} else {
			height -= step
		}
	}
	return locator
}

// FindForkPoint walks a peer-supplied locator against the local chain and
// returns the first hash the local store recognizes, or false if none of
// the locator's hashes are known (the peer is on an unrelated chain).
func FindForkPoint(r ChainReader, locator []molecule.Byte32) (molecule.Byte32, bool) {
	for _, h := range locator {
		if _, ok := r.GetBlockHeader(h); ok {
			return h, true
		}
	}
	return molecule.Byte32{}, false
}
