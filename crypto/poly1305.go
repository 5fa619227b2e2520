// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import "math/big"

const poly1305TagSize = 16

var poly1305P = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 130)
	return p.Sub(p, big.NewInt(5))
}()

// poly1305 computes the RFC 8439 §2.5 one-time MAC of msg under the
// given 32-byte key, writing the 16-byte tag into out. The key must
// never be reused across messages.
//
// The accumulator arithmetic is carried out with math/big rather than
// fixed-width limbs: Poly1305 runs once per message (it is a one-time
// authenticator keyed per invocation, never reused), so it is not on
// the per-byte hot path the way the ChaCha20 stream cipher is, and
// correctness of the 130-bit modular arithmetic matters far more than
// shaving allocations.
func poly1305(out *[poly1305TagSize]byte, msg []byte, key *[32]byte) {
	var rBytes [16]byte
	copy(rBytes[:], key[:16])
	// Clamp r per RFC 8439 §2.5.1.
	rBytes[3] &= 15
	rBytes[7] &= 15
	rBytes[11] &= 15
	rBytes[15] &= 15
	rBytes[4] &= 252
	rBytes[8] &= 252
	rBytes[12] &= 252

	r := new(big.Int).SetBytes(reverse(rBytes[:]))
	s := new(big.Int).SetBytes(reverse(append([]byte(nil), key[16:32]...)))

	acc := new(big.Int)
	block := make([]byte, 17)
	for len(msg) > 0 {
		n := len(msg)
		if n > 16 {
			n = 16
		}
		for i := range block {
			block[i] = 0
		}
		copy(block[:n], msg[:n])
		block[n] = 1 // the implicit high bit, per RFC 8439 §2.5.1

		// block[:n+1] is little-endian; interpret as a big-endian byte
		// string for big.Int by reversing it.
		le := append([]byte(nil), block[:n+1]...)
		c := new(big.Int).SetBytes(reverse(le))

		acc.Add(acc, c)
		acc.Mul(acc, r)
		acc.Mod(acc, poly1305P)

		msg = msg[n:]
	}

	acc.Add(acc, s)

	tag := acc.Bytes()
	// acc is at most 129 bits plus the 128-bit s addition; take the low
	// 128 bits (mod 2^128) and emit little-endian.
	var full [16]byte
	if len(tag) > 16 {
		tag = tag[len(tag)-16:]
	}
	copy(full[16-len(tag):], tag)
	copy(out[:], reverse(full[:]))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
