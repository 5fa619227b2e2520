// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"crypto/subtle"
	"encoding/binary"
)

// KeySize and NonceSize are the ChaCha20-Poly1305 parameters from RFC 8439.
const (
	KeySize   = chachaKeySize
	NonceSize = chachaNonceSize
	TagSize   = poly1305TagSize
)

// AEAD is the interface the rest of the core consumes for authenticated
// encryption. DefaultAEAD returns the from-scratch RFC 8439
// implementation; a host may substitute a hardware-accelerated provider
// satisfying the same interface (see the providers package).
type AEAD interface {
	// Encrypt seals plaintext under key/nonce/aad, returning
	// ciphertext‖tag. It never fails on well-formed input.
	Encrypt(key *[KeySize]byte, nonce *[NonceSize]byte, plaintext, aad []byte) ([]byte, error)
	// Decrypt opens ciphertext‖tag under key/nonce/aad. It returns
	// ErrAuthenticationFailed (no partial plaintext) on tag mismatch,
	// distinct from input-validation errors.
	Decrypt(key *[KeySize]byte, nonce *[NonceSize]byte, ciphertextAndTag, aad []byte) ([]byte, error)
}

type referenceAEAD struct{}

// DefaultAEAD returns the reference ChaCha20-Poly1305 implementation.
func DefaultAEAD() AEAD { return referenceAEAD{} }

// Encrypt implements AEAD using the from-scratch ChaCha20 and Poly1305
// primitives above, per RFC 8439 §2.8.
func (referenceAEAD) Encrypt(key *[KeySize]byte, nonce *[NonceSize]byte, plaintext, aad []byte) ([]byte, error) {
	out := make([]byte, len(plaintext)+TagSize)
	sealInto(out, key, nonce, plaintext, aad)
	return out, nil
}

func (referenceAEAD) Decrypt(key *[KeySize]byte, nonce *[NonceSize]byte, ciphertextAndTag, aad []byte) ([]byte, error) {
	if len(ciphertextAndTag) < TagSize {
		return nil, ErrInvalidInput
	}
	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-TagSize]
	gotTag := ciphertextAndTag[len(ciphertextAndTag)-TagSize:]

	var polyKey [32]byte
	var zeroBlock [chachaBlockSize]byte
	chachaBlock(&zeroBlock, key, 0, nonce)
	copy(polyKey[:], zeroBlock[:32])

	var wantTag [TagSize]byte
	poly1305(&wantTag, macInput(aad, ciphertext), &polyKey)

	// Constant-time comparison of all TagSize bytes, no early exit.
	if subtle.ConstantTimeCompare(wantTag[:], gotTag) != 1 {
		return nil, ErrAuthenticationFailed
	}

	plaintext := make([]byte, len(ciphertext))
	chachaXOR(plaintext, ciphertext, key, nonce, 1)
	return plaintext, nil
}

// sealInto writes ciphertext‖tag for plaintext into dst, which must be
// exactly len(plaintext)+TagSize bytes.
func sealInto(dst []byte, key *[KeySize]byte, nonce *[NonceSize]byte, plaintext, aad []byte) {
	var polyKey [32]byte
	var zeroBlock [chachaBlockSize]byte
	chachaBlock(&zeroBlock, key, 0, nonce)
	copy(polyKey[:], zeroBlock[:32])

	ciphertext := dst[:len(plaintext)]
	chachaXOR(ciphertext, plaintext, key, nonce, 1)

	var tag [TagSize]byte
	poly1305(&tag, macInput(aad, ciphertext), &polyKey)
	copy(dst[len(plaintext):], tag[:])
}

// macInput builds the Poly1305 MAC input per RFC 8439 §2.8:
// aad ‖ pad16(aad) ‖ ciphertext ‖ pad16(ciphertext) ‖ len64(aad) ‖ len64(ciphertext).
func macInput(aad, ciphertext []byte) []byte {
	buf := make([]byte, 0, pad16Len(len(aad))+pad16Len(len(ciphertext))+16)
	buf = append(buf, aad...)
	buf = append(buf, make([]byte, pad16Len(len(aad))-len(aad))...)
	buf = append(buf, ciphertext...)
	buf = append(buf, make([]byte, pad16Len(len(ciphertext))-len(ciphertext))...)

	var lens [16]byte
	binary.LittleEndian.PutUint64(lens[0:8], uint64(len(aad)))
	binary.LittleEndian.PutUint64(lens[8:16], uint64(len(ciphertext)))
	buf = append(buf, lens[:]...)
	return buf
}

// pad16Len returns n rounded up to the next multiple of 16.
func pad16Len(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}
