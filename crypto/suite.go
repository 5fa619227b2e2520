// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

// Suite bundles the three primitives the noise package depends on — AEAD,
// hash, and DH — behind one injectable value, so HandshakeCore never calls
// a package-level function directly and an alternative (e.g.
// hardware-accelerated) provider can be substituted without touching the
// state machine. See the providers package for capability detection.
type Suite interface {
	AEAD() AEAD
	HashSize() int
	Hash(data ...[]byte) [32]byte
	GenerateKeyPair() (sk [X25519KeySize]byte, pk [X25519KeySize]byte, err error)
	DH(sk, peerPK [X25519KeySize]byte) [X25519KeySize]byte
}

type referenceSuite struct{}

// DefaultSuite returns the from-scratch reference Suite: referenceAEAD,
// the package's own SHA-256, and the Montgomery-ladder X25519.
func DefaultSuite() Suite { return referenceSuite{} }

func (referenceSuite) AEAD() AEAD    { return DefaultAEAD() }
func (referenceSuite) HashSize() int { return sha256Size }

func (referenceSuite) Hash(data ...[]byte) [32]byte {
	return sha256Sum(data...)
}

func (referenceSuite) GenerateKeyPair() ([X25519KeySize]byte, [X25519KeySize]byte, error) {
	return GenerateX25519KeyPair()
}

func (referenceSuite) DH(sk, peerPK [X25519KeySize]byte) [X25519KeySize]byte {
	return ScalarMult(sk, peerPK)
}
