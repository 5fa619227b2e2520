// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// PublicKey and PrivateKey represent X25519 points and scalars. They are
// plain fixed-size arrays — value types — so callers that want a copy
// simply assign; Zero explicitly wipes a key's backing storage in place.
type (
	PublicKey  [X25519KeySize]byte
	PrivateKey [X25519KeySize]byte
)

// Public computes the public point matching a private scalar.
func (k PrivateKey) Public() PublicKey {
	return PublicKey(ScalarMultBase([X25519KeySize]byte(k)))
}

// SharedSecret performs the X25519 Diffie-Hellman operation.
func (k PrivateKey) SharedSecret(peer PublicKey) [X25519KeySize]byte {
	return ScalarMult([X25519KeySize]byte(k), [X25519KeySize]byte(peer))
}

// IsZero reports whether the key is the all-zero value, in constant time.
func (k PrivateKey) IsZero() bool {
	var zero PrivateKey
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// Zero overwrites the key's storage with zeroes.
func (k *PrivateKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

func (k PublicKey) IsZero() bool {
	var zero PublicKey
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// Zero overwrites the key's storage with zeroes.
func (k *PublicKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// Equal performs a constant-time comparison of two public keys.
func (k PublicKey) Equal(other PublicKey) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

func (k PublicKey) Base64() string { return base64.StdEncoding.EncodeToString(k[:]) }
func (k PublicKey) Hex() string    { return hex.EncodeToString(k[:]) }

// Less orders two public keys byte-wise; used by the handshake manager's
// simultaneous-open tie-break (the side whose static key compares
// strictly greater yields).
func (k PublicKey) Less(other PublicKey) bool {
	for i := range k {
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return false
}

// ParsePublicKeyBase64 decodes a standard-base64-encoded public key.
func ParsePublicKeyBase64(s string) (PublicKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PublicKey{}, ErrInvalidInput
	}
	if len(b) != X25519KeySize {
		return PublicKey{}, ErrInvalidInput
	}
	var k PublicKey
	copy(k[:], b)
	return k, nil
}

// ParsePublicKeyHex decodes a hex-encoded public key. Unlike base64's
// alphabet, hex digit order preserves byte-wise numeric order, so
// callers that need Less to mean what it says (e.g. a tie-break over a
// peer ID string) should encode keys this way rather than with Base64.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, ErrInvalidInput
	}
	if len(b) != X25519KeySize {
		return PublicKey{}, ErrInvalidInput
	}
	var k PublicKey
	copy(k[:], b)
	return k, nil
}

// ParsePrivateKeyBase64 decodes a standard-base64-encoded private key.
func ParsePrivateKeyBase64(s string) (PrivateKey, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PrivateKey{}, ErrInvalidInput
	}
	if len(b) != X25519KeySize {
		return PrivateKey{}, ErrInvalidInput
	}
	var k PrivateKey
	copy(k[:], b)
	return k, nil
}
