// Package crypto names the secp256k1 signing/verification primitive as
// a narrow interface; this package only defines the contract lock-script
// verification and a wallet/keystore layer would use.
package crypto

import "github.com/nervosnetwork/ckb-go/core/molecule"

// Signature is an opaque recoverable secp256k1 signature.
type Signature [65]byte

// Signer signs and verifies message digests under secp256k1. A real
// implementation wraps github.com/btcsuite/btcd/btcec/v2 or an HSM; this
// repo ships only the interface plus a test fake (FakeSigner).
type Signer interface {
	Sign(digest molecule.Byte32) (Signature, error)
	Verify(digest molecule.Byte32, sig Signature, pubkey []byte) bool
}

// FakeSigner is a test fake: Sign returns a signature that embeds the
// digest itself, and Verify checks that embedding. It is not
// cryptographically meaningful and exists only to exercise call sites
// that need a Signer without pulling in real secp256k1.
type FakeSigner struct{}

func (FakeSigner) Sign(digest molecule.Byte32) (Signature, error) {
	var sig Signature
	copy(sig[:32], digest[:])
	return sig, nil
}

func (FakeSigner) Verify(digest molecule.Byte32, sig Signature, _ []byte) bool {
	var want Signature
	copy(want[:32], digest[:])
	return sig == want
}
