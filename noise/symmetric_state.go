// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package noise implements the Noise_XX_25519_ChaChaPoly_SHA256 handshake
// pattern: SymmetricState carries the rolling transcript hash and chaining
// key, HandshakeCore drives the three-message exchange over it.
package noise

import (
	"encoding/binary"

	"github.com/airmesh/meshcore/crypto"
)

const protocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

// SymmetricState is the Noise object holding h (rolling hash), ck
// (chaining key), k (current AEAD key, optional), and n (nonce counter for
// k). Not safe for concurrent use.
type SymmetricState struct {
	suite crypto.Suite

	h  [32]byte
	ck [32]byte
	k  [32]byte
	n  uint64

	hasKey bool
}

// NewSymmetricState initializes SymmetricState from the fixed protocol
// name per §4.4: h = name zero-padded to 32 bytes if it fits, else
// SHA-256(name); ck = h; k unset; n = 0.
func NewSymmetricState(suite crypto.Suite) *SymmetricState {
	s := &SymmetricState{suite: suite}
	name := []byte(protocolName)
	if len(name) <= 32 {
		copy(s.h[:], name)
	} else {
		s.h = suite.Hash(name)
	}
	s.ck = s.h
	return s
}

// MixHash folds data into the rolling transcript hash: h = Hash(h ‖ data).
func (s *SymmetricState) MixHash(data []byte) {
	s.h = s.suite.Hash(s.h[:], data)
}

// MixKey derives a new chaining key and AEAD key from a DH output:
// (ck, k) = HKDF(ck, input, 64); n resets to 0.
func (s *SymmetricState) MixKey(input []byte) {
	okm, err := crypto.Derive(input, s.ck[:], nil, 64)
	if err != nil {
		// Derive only fails when the requested length exceeds HKDF's
		// 8160-byte ceiling; 64 bytes never does.
		panic("noise: unreachable HKDF failure in MixKey: " + err.Error())
	}
	copy(s.ck[:], okm[:32])
	copy(s.k[:], okm[32:64])
	s.n = 0
	s.hasKey = true
}

// EncryptAndHash seals plaintext under k (if set) with h as associated
// data, advances n, then mixes the ciphertext (or, if no key is set yet,
// the plaintext itself) into h.
func (s *SymmetricState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	if !s.hasKey {
		s.MixHash(plaintext)
		return append([]byte(nil), plaintext...), nil
	}
	var key [crypto.KeySize]byte
	key = s.k
	nonce := s.nonce()
	ciphertext, err := s.suite.AEAD().Encrypt(&key, &nonce, plaintext, s.h[:])
	if err != nil {
		return nil, err
	}
	s.n++
	s.MixHash(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash opens ciphertext under k (if set) with h as associated
// data, advances n on success, then mixes the raw ciphertext bytes into h
// regardless of whether k is set — matching §4.4's requirement that h
// absorbs the wire bytes even on the "no key yet" path.
func (s *SymmetricState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	if !s.hasKey {
		s.MixHash(ciphertext)
		return append([]byte(nil), ciphertext...), nil
	}
	var key [crypto.KeySize]byte
	key = s.k
	nonce := s.nonce()
	plaintext, err := s.suite.AEAD().Decrypt(&key, &nonce, ciphertext, s.h[:])
	if err != nil {
		return nil, err
	}
	s.n++
	s.MixHash(ciphertext)
	return plaintext, nil
}

// Split derives the pair of transport keys from the final chaining key:
// (k1, k2) = HKDF(ck, "", 64).
func (s *SymmetricState) Split() (k1, k2 [32]byte) {
	okm, err := crypto.Derive(nil, s.ck[:], nil, 64)
	if err != nil {
		panic("noise: unreachable HKDF failure in Split: " + err.Error())
	}
	copy(k1[:], okm[:32])
	copy(k2[:], okm[32:64])
	return k1, k2
}

// Hash returns the current rolling transcript hash h.
func (s *SymmetricState) Hash() [32]byte { return s.h }

// nonce builds the Noise AEAD nonce: 4 zero bytes ‖ little-endian n.
func (s *SymmetricState) nonce() [crypto.NonceSize]byte {
	var out [crypto.NonceSize]byte
	binary.LittleEndian.PutUint64(out[4:], s.n)
	return out
}
