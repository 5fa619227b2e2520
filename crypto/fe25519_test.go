// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"math/big"
	"math/rand"
	"testing"
)

var feP = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 255)
	return p.Sub(p, big.NewInt(19))
}()

func feToBig(h fe) *big.Int {
	h = feReduce(h)
	v := new(big.Int)
	for i := 4; i >= 0; i-- {
		v.Lsh(v, 51)
		v.Or(v, new(big.Int).SetUint64(h[i]))
	}
	return v
}

func bigToFe(t *testing.T, v *big.Int) fe {
	t.Helper()
	v = new(big.Int).Mod(v, feP)
	var b [32]byte
	bs := v.Bytes()
	for i, x := range bs {
		b[len(bs)-1-i] = x
	}
	return feFromBytes(b)
}

// randFe produces a field element from a uniformly random value mod p,
// so arithmetic identities are checked against arbitrary-precision
// math rather than only small hand-picked inputs.
func randFe(t *testing.T, r *rand.Rand) fe {
	t.Helper()
	var raw big.Int
	buf := make([]byte, 32)
	r.Read(buf)
	raw.SetBytes(buf)
	return bigToFe(t, &raw)
}

func TestFeMulMatchesBigIntModMul(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a := randFe(t, r)
		b := randFe(t, r)
		got := feToBig(feMul(a, b))
		want := new(big.Int).Mod(new(big.Int).Mul(feToBig(a), feToBig(b)), feP)
		if got.Cmp(want) != 0 {
			t.Fatalf("feMul mismatch at iter %d:\n got  %x\n want %x", i, got, want)
		}
	}
}

func TestFeAddSubMatchBigInt(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a := randFe(t, r)
		b := randFe(t, r)

		gotAdd := feToBig(feAdd(a, b))
		wantAdd := new(big.Int).Mod(new(big.Int).Add(feToBig(a), feToBig(b)), feP)
		if gotAdd.Cmp(wantAdd) != 0 {
			t.Fatalf("feAdd mismatch at iter %d", i)
		}

		gotSub := feToBig(feSub(a, b))
		wantSub := new(big.Int).Mod(new(big.Int).Sub(feToBig(a), feToBig(b)), feP)
		if gotSub.Cmp(wantSub) != 0 {
			t.Fatalf("feSub mismatch at iter %d", i)
		}
	}
}

func TestFeInvertMatchesBigIntModInverse(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		a := randFe(t, r)
		if feToBig(a).Sign() == 0 {
			continue
		}
		got := feToBig(feInvert(a))
		want := new(big.Int).ModInverse(feToBig(a), feP)
		if got.Cmp(want) != 0 {
			t.Fatalf("feInvert mismatch at iter %d:\n got  %x\n want %x", i, got, want)
		}
	}
}

func TestFeToBytesFromBytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		var b [32]byte
		r.Read(b[:])
		b[31] &= 0x7f // only the low 255 bits are a valid field element
		h := feFromBytes(b)
		back := feToBytes(h)
		if back != b {
			t.Fatalf("round trip mismatch at iter %d:\n got  %x\n want %x", i, back, b)
		}
	}
}

func TestFeCSwapSwapsOnlyWhenAsked(t *testing.T) {
	a := fe{1, 2, 3, 4, 5}
	b := fe{6, 7, 8, 9, 10}

	x, y := a, b
	feCSwap(0, &x, &y)
	if x != a || y != b {
		t.Fatalf("swap=0 must not swap: got x=%v y=%v", x, y)
	}

	x, y = a, b
	feCSwap(1, &x, &y)
	if x != b || y != a {
		t.Fatalf("swap=1 must swap: got x=%v y=%v", x, y)
	}
}
