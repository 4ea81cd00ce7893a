package relay

import "encoding/binary"

// siphash24 implements SipHash-2-4 (2 compression rounds, 4 finalization
// rounds) over an 8-byte-block message, the short-id keying primitive.
// Written out directly from the published algorithm; the ecosystem's
// SipHash packages target hash-table seeding, not this wire-exact
// nonce-keyed truncation.
func siphash24(k0, k1 uint64, data []byte) uint64 {
	v0 := uint64(0x736f6d6570736575) ^ k0
	v1 := uint64(0x646f72616e646f6d) ^ k1
	v2 := uint64(0x6c7967656e657261) ^ k0
	v3 := uint64(0x7465646279746573) ^ k1

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	length := len(data)
	end := length - (length % 8)
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		round()
		round()
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(length)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round()
	round()
	v0 ^= m

	v2 ^= 0xff
	round()
	round()
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

// ShortIDKeys derives the per-block SipHash key pair from a compact
// block's single u64 nonce.
func ShortIDKeys(nonce uint64) (k0, k1 uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	h := siphash24(0, 0, buf[:])
	// Derive two independent keys from one siphash evaluation by hashing
	// the nonce with two distinct domain-separation tags.
	k0 = siphash24(h, nonce, []byte("ckb-short-id-k0-"))
	k1 = siphash24(h, nonce, []byte("ckb-short-id-k1-"))
	return k0, k1
}

// ShortID truncates SipHash-2-4(k0,k1, witnessHash) to its low 6 bytes.
type ShortID [6]byte

func ComputeShortID(k0, k1 uint64, witnessHash [32]byte) ShortID {
	h := siphash24(k0, k1, witnessHash[:])
	var id ShortID
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h)
	copy(id[:], buf[:6])
	return id
}
