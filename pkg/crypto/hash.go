// Package crypto provides the hashing and signing primitives for the
// MycoBrain envelope: BLAKE2b-256 content hashing and Ed25519
// signatures over the "MYCO1" domain tag.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// SignDomain is prepended to the envelope hash before signing
const SignDomain = "MYCO1"

// Hash generates a BLAKE2b-256 hash
func Hash(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// HashString generates a BLAKE2b-256 hash and returns hex string
func HashString(data []byte) string {
	h := Hash(data)
	return hex.EncodeToString(h[:])
}

// Sign signs an envelope hash: Ed25519 over SignDomain ++ hash
func Sign(key ed25519.PrivateKey, hash [32]byte) [64]byte {
	msg := make([]byte, 0, len(SignDomain)+len(hash))
	msg = append(msg, SignDomain...)
	msg = append(msg, hash[:]...)

	var sig [64]byte
	copy(sig[:], ed25519.Sign(key, msg))
	return sig
}

// Verify checks an Ed25519 signature over SignDomain ++ hash
func Verify(key ed25519.PublicKey, hash [32]byte, sig [64]byte) bool {
	msg := make([]byte, 0, len(SignDomain)+len(hash))
	msg = append(msg, SignDomain...)
	msg = append(msg, hash[:]...)

	return ed25519.Verify(key, msg, sig[:])
}

// PlaceholderSignature derives the fixed-width bring-up signature used
// when no key is provisioned: the hash repeated twice. Verifiers treat
// placeholder-signed envelopes as unverified, not invalid.
func PlaceholderSignature(hash [32]byte) [64]byte {
	var sig [64]byte
	copy(sig[:32], hash[:])
	copy(sig[32:], hash[:])
	return sig
}

// IsPlaceholderSignature reports whether sig is the bring-up
// placeholder for hash
func IsPlaceholderSignature(hash [32]byte, sig [64]byte) bool {
	return sig == PlaceholderSignature(hash)
}
