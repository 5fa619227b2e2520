// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

const hashSize = sha256Size

// maxExpandLen is HKDF's hard ceiling of 255 output blocks.
const maxExpandLen = 255 * hashSize

// Extract implements HKDF-Extract (RFC 5869 §2.2) over HMAC-SHA256. An
// empty salt is replaced by a zeroed hash-sized block, per the RFC.
func Extract(salt, ikm []byte) [hashSize]byte {
	if len(salt) == 0 {
		salt = make([]byte, hashSize)
	}
	return hmacSHA256(salt, ikm)
}

// Expand implements HKDF-Expand (RFC 5869 §2.3) over HMAC-SHA256. It
// fails with ErrInvalidInput when the requested length exceeds 255
// hash-output blocks (8160 bytes for SHA-256).
func Expand(prk [hashSize]byte, info []byte, length int) ([]byte, error) {
	if length > maxExpandLen {
		return nil, ErrInvalidInput
	}
	okm := make([]byte, 0, length)
	var t []byte
	counter := byte(1)
	for len(okm) < length {
		msg := make([]byte, 0, len(t)+len(info)+1)
		msg = append(msg, t...)
		msg = append(msg, info...)
		msg = append(msg, counter)
		sum := hmacSHA256(prk[:], msg)
		t = sum[:]
		okm = append(okm, t...)
		counter++
	}
	return okm[:length], nil
}

// Derive is the HKDF-Extract-then-Expand composition (RFC 5869 §2.1).
func Derive(ikm, salt, info []byte, length int) ([]byte, error) {
	prk := Extract(salt, ikm)
	return Expand(prk, info, length)
}

// DeriveMultiple expands a single HKDF stream and splits it into the
// requested lengths in order, so that derive_multiple(ikm, salt, info,
// [L1, L2, ...]) is the prefix-split of one expansion rather than
// independent calls with different info strings.
func DeriveMultiple(ikm, salt, info []byte, lengths []int) ([][]byte, error) {
	total := 0
	for _, l := range lengths {
		total += l
	}
	okm, err := Derive(ikm, salt, info, total)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(lengths))
	offset := 0
	for i, l := range lengths {
		out[i] = okm[offset : offset+l]
		offset += l
	}
	return out, nil
}
