// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import "crypto/rand"

// X25519KeySize is the size, in bytes, of an X25519 scalar or point.
const X25519KeySize = 32

// a24 is the Montgomery-curve constant (A-2)/4 = 121665 for Curve25519,
// held as a field element so the ladder's one constant multiplication
// goes through the same constant-time feMul as everything else.
var a24 = fe{121665, 0, 0, 0, 0}

// GenerateX25519KeyPair produces a new random X25519 scalar, clamped per
// RFC 7748 §5, and its corresponding public point.
func GenerateX25519KeyPair() (sk, pk [X25519KeySize]byte, err error) {
	if _, err = rand.Read(sk[:]); err != nil {
		return sk, pk, err
	}
	clampScalar(&sk)
	pk = ScalarMultBase(sk)
	return sk, pk, nil
}

// ScalarMultBase computes the X25519 base-point multiplication sk*9.
func ScalarMultBase(sk [X25519KeySize]byte) [X25519KeySize]byte {
	var base [X25519KeySize]byte
	base[0] = 9
	return ScalarMult(sk, base)
}

// ScalarMult performs the X25519 Montgomery-ladder scalar multiplication
// (RFC 7748 §5): shared = sk * peerPK (as a u-coordinate). Every field
// operation in the ladder (feAdd, feSub, feMul, feSquare, feCSwap, and
// the inversion at the end) runs in time independent of the limb
// values, and feCSwap swaps the two candidate points with a branchless
// mask rather than a conditional — so the only place this function's
// timing can depend on sk is through the loop trip count, which is
// fixed at 255 iterations regardless of key value.
func ScalarMult(sk, peerPK [X25519KeySize]byte) [X25519KeySize]byte {
	clampScalar(&sk)

	u := decodeUCoordinate(peerPK)
	x1 := u
	x2 := fe{1, 0, 0, 0, 0}
	z2 := fe{0, 0, 0, 0, 0}
	x3 := u
	z3 := fe{1, 0, 0, 0, 0}

	var swap uint64
	for t := 254; t >= 0; t-- {
		kt := uint64(sk[t/8]>>(uint(t)%8)) & 1
		swap ^= kt
		feCSwap(swap, &x2, &x3)
		feCSwap(swap, &z2, &z3)
		swap = kt

		a := feAdd(x2, z2)
		aa := feSquare(a)
		b := feSub(x2, z2)
		bb := feSquare(b)
		e := feSub(aa, bb)
		c := feAdd(x3, z3)
		d := feSub(x3, z3)
		da := feMul(d, a)
		cb := feMul(c, b)

		sum := feAdd(da, cb)
		x3 = feSquare(sum)
		diff := feSub(da, cb)
		diffSq := feSquare(diff)
		z3 = feMul(x1, diffSq)

		x2 = feMul(aa, bb)
		inner := feAdd(aa, feMul(a24, e))
		z2 = feMul(e, inner)
	}
	feCSwap(swap, &x2, &x3)
	feCSwap(swap, &z2, &z3)

	zInv := feInvert(z2)
	result := feMul(x2, zInv)

	return feToBytes(result)
}

func clampScalar(sk *[X25519KeySize]byte) {
	sk[0] &= 248
	sk[31] &= 127
	sk[31] |= 64
}

func decodeUCoordinate(u [X25519KeySize]byte) fe {
	u[31] &= 0x7f
	return feFromBytes(u)
}
