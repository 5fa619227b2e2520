// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"encoding/binary"
	"math/bits"
)

// fe is a field element of GF(2^255-19), represented as five 51-bit
// limbs in radix 2^51 (the curve25519-donna / ref10 representation).
// Every operation here runs in time independent of the limb values —
// no branch or memory access pattern depends on secret data — which is
// what lets ScalarMult's Montgomery ladder resist basic timing attacks
// per the constant-time DH requirement.
type fe [5]uint64

const feMask = (uint64(1) << 51) - 1

// feFromBytes decodes a little-endian 32-byte u-coordinate into a
// field element. The caller is responsible for masking the top bit
// per RFC 7748 §5 before calling this.
func feFromBytes(s [32]byte) fe {
	h0 := binary.LittleEndian.Uint64(s[0:8]) & feMask
	h1 := (binary.LittleEndian.Uint64(s[6:14]) >> 3) & feMask
	h2 := (binary.LittleEndian.Uint64(s[12:20]) >> 6) & feMask
	h3 := (binary.LittleEndian.Uint64(s[19:27]) >> 1) & feMask
	h4 := (binary.LittleEndian.Uint64(s[24:32]) >> 12) & feMask
	return fe{h0, h1, h2, h3, h4}
}

// placeBits ORs an up-to-51-bit value into a little-endian bit
// accumulator at the given bit offset, splitting across the word
// boundary when necessary.
func placeBits(words *[4]uint64, v uint64, bitpos int) {
	wordIdx := bitpos / 64
	bitOff := uint(bitpos % 64)
	words[wordIdx] |= v << bitOff
	if bitOff > 0 && wordIdx+1 < len(words) {
		words[wordIdx+1] |= v >> (64 - bitOff)
	}
}

// feToBytes canonicalizes h (strong reduction mod p) and encodes it as
// a little-endian 32-byte u-coordinate.
func feToBytes(h fe) [32]byte {
	h = feReduce(h)

	var words [4]uint64
	placeBits(&words, h[0], 0)
	placeBits(&words, h[1], 51)
	placeBits(&words, h[2], 102)
	placeBits(&words, h[3], 153)
	placeBits(&words, h[4], 204)

	var out [32]byte
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

// feCarryPropagate folds each limb down to <2^51, wrapping the final
// carry back into limb 0 multiplied by 19 (2^255 ≡ 19 mod p). The
// result may still exceed p by a small multiple; it is not a
// canonical representative, only a weakly reduced one.
func feCarryPropagate(h fe) fe {
	c0 := h[0] >> 51
	h[0] &= feMask
	h[1] += c0
	c1 := h[1] >> 51
	h[1] &= feMask
	h[2] += c1
	c2 := h[2] >> 51
	h[2] &= feMask
	h[3] += c2
	c3 := h[3] >> 51
	h[3] &= feMask
	h[4] += c3
	c4 := h[4] >> 51
	h[4] &= feMask
	h[0] += c4 * 19
	c0b := h[0] >> 51
	h[0] &= feMask
	h[1] += c0b
	return h
}

// feReduce produces the canonical representative of h in [0, p),
// selecting in constant time between the weakly reduced value and
// that value minus p.
func feReduce(h fe) fe {
	h = feCarryPropagate(h)

	t := h
	t[0] += 19
	c := t[0] >> 51
	t[0] &= feMask
	t[1] += c
	c = t[1] >> 51
	t[1] &= feMask
	t[2] += c
	c = t[2] >> 51
	t[2] &= feMask
	t[3] += c
	c = t[3] >> 51
	t[3] &= feMask
	t[4] += c
	c = t[4] >> 51
	t[4] &= feMask
	// c == 1 iff h + 19 >= 2^255, i.e. h >= p, in which case t already
	// equals (h+19) mod 2^255 == h - p.

	sel := uint64(0) - c
	var out fe
	for i := range h {
		out[i] = (h[i] &^ sel) | (t[i] & sel)
	}
	return out
}

// feAdd adds two field elements and carry-propagates the sum, so
// every value feMul/feSquare ever sees as input is bounded to <2^51
// per limb — the bound the wide multiply's wraparound-by-19 folding
// step relies on to stay inside 64 bits.
func feAdd(a, b fe) fe {
	var r fe
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return feCarryPropagate(r)
}

// twoP is 2*p's limb decomposition (2*(2^51-19), 2*(2^51-1) four
// times), added before subtracting so every limb-wise subtraction
// below stays non-negative without a borrow chain.
var twoP = fe{0xfffffffffffda, 0xffffffffffffe, 0xffffffffffffe, 0xffffffffffffe, 0xffffffffffffe}

// feSub computes a-b mod p, offset by 2p to avoid underflow in
// unsigned limb subtraction, then carry-propagates for the same
// reason feAdd does.
func feSub(a, b fe) fe {
	var r fe
	for i := range r {
		r[i] = a[i] + twoP[i] - b[i]
	}
	return feCarryPropagate(r)
}

type uint128 struct{ hi, lo uint64 }

func mul64(a, b uint64) uint128 {
	hi, lo := bits.Mul64(a, b)
	return uint128{hi, lo}
}

func (x uint128) add(y uint128) uint128 {
	lo, c := bits.Add64(x.lo, y.lo, 0)
	hi, _ := bits.Add64(x.hi, y.hi, c)
	return uint128{hi, lo}
}

func (x uint128) addU64(y uint64) uint128 {
	lo, c := bits.Add64(x.lo, y, 0)
	hi, _ := bits.Add64(x.hi, 0, c)
	return uint128{hi, lo}
}

// shr51 returns x >> 51 for a 128-bit value whose quotient is known to
// fit in 64 bits (true for every use in this file, given the bounded
// limb magnitudes feMul/feMulSmall operate on).
func (x uint128) shr51() uint64 {
	return (x.lo >> 51) | (x.hi << 13)
}

func (x uint128) low51() uint64 {
	return x.lo & feMask
}

// feMul multiplies two field elements using 128-bit-per-limb
// schoolbook accumulation, folding the five terms whose exponent
// would otherwise land at or above 2^255 back in multiplied by 19
// (2^255 ≡ 19 mod p), then carrying down to 51-bit limbs.
func feMul(a, b fe) fe {
	b1_19 := b[1] * 19
	b2_19 := b[2] * 19
	b3_19 := b[3] * 19
	b4_19 := b[4] * 19

	r0 := mul64(a[0], b[0]).add(mul64(a[1], b4_19)).add(mul64(a[2], b3_19)).add(mul64(a[3], b2_19)).add(mul64(a[4], b1_19))
	r1 := mul64(a[0], b[1]).add(mul64(a[1], b[0])).add(mul64(a[2], b4_19)).add(mul64(a[3], b3_19)).add(mul64(a[4], b2_19))
	r2 := mul64(a[0], b[2]).add(mul64(a[1], b[1])).add(mul64(a[2], b[0])).add(mul64(a[3], b4_19)).add(mul64(a[4], b3_19))
	r3 := mul64(a[0], b[3]).add(mul64(a[1], b[2])).add(mul64(a[2], b[1])).add(mul64(a[3], b[0])).add(mul64(a[4], b4_19))
	r4 := mul64(a[0], b[4]).add(mul64(a[1], b[3])).add(mul64(a[2], b[2])).add(mul64(a[3], b[1])).add(mul64(a[4], b[0]))

	c0 := r0.shr51()
	h0 := r0.low51()
	r1 = r1.addU64(c0)
	c1 := r1.shr51()
	h1 := r1.low51()
	r2 = r2.addU64(c1)
	c2 := r2.shr51()
	h2 := r2.low51()
	r3 = r3.addU64(c2)
	c3 := r3.shr51()
	h3 := r3.low51()
	r4 = r4.addU64(c3)
	c4 := r4.shr51()
	h4 := r4.low51()

	h0 += c4 * 19
	cf := h0 >> 51
	h0 &= feMask
	h1 += cf

	return fe{h0, h1, h2, h3, h4}
}

func feSquare(a fe) fe { return feMul(a, a) }

func feSquarePow(a fe, n int) fe {
	for i := 0; i < n; i++ {
		a = feSquare(a)
	}
	return a
}

// feInvert computes a^-1 mod p via Fermat's little theorem
// (a^(p-2)), using the standard curve25519 addition chain so the
// exponentiation is a fixed, data-independent sequence of squarings
// and multiplications.
func feInvert(z fe) fe {
	z2 := feSquare(z)
	z9 := feSquarePow(z2, 2)
	z9 = feMul(z, z9)
	z11 := feMul(z2, z9)
	z22 := feSquare(z11)
	z_5_0 := feMul(z9, z22)

	z_10_0 := feSquarePow(z_5_0, 5)
	z_10_0 = feMul(z_10_0, z_5_0)

	z_20_0 := feSquarePow(z_10_0, 10)
	z_20_0 = feMul(z_20_0, z_10_0)

	z_40_0 := feSquarePow(z_20_0, 20)
	z_40_0 = feMul(z_40_0, z_20_0)

	z_50_0 := feSquarePow(z_40_0, 10)
	z_50_0 = feMul(z_50_0, z_10_0)

	z_100_0 := feSquarePow(z_50_0, 50)
	z_100_0 = feMul(z_100_0, z_50_0)

	z_200_0 := feSquarePow(z_100_0, 100)
	z_200_0 = feMul(z_200_0, z_100_0)

	z_250_0 := feSquarePow(z_200_0, 50)
	z_250_0 = feMul(z_250_0, z_50_0)

	result := feSquarePow(z_250_0, 5)
	return feMul(result, z11)
}

// feCSwap conditionally swaps a and b in constant time when swap is
// 1 (swap must be 0 or 1); no branch is taken on swap's value.
func feCSwap(swap uint64, a, b *fe) {
	mask := uint64(0) - (swap & 1)
	for i := range a {
		t := mask & (a[i] ^ b[i])
		a[i] ^= t
		b[i] ^= t
	}
}
