package molecule

import "golang.org/x/crypto/blake2b"

// blake2b256 is the node's identity hash: Blake2b-256, no key, applied to
// canonical serialized bytes.
func blake2b256(data []byte) Byte32 {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for bad key length; nil key never does.
		panic(err)
	}
	h.Write(data)
	var out Byte32
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 exposes the node identity hash for callers outside this
// package that need to hash arbitrary bytes the same way (e.g. the
// chain service's epoch index key, the store's cell data hash).
func Blake2b256(data []byte) Byte32 {
	return blake2b256(data)
}
