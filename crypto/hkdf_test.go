// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"bytes"
	"testing"
)

// TestHKDFRFC5869Vector reproduces RFC 5869's test case 1, adapted to
// SHA-256 (the RFC's case 1 already uses SHA-256).
func TestHKDFRFC5869Vector(t *testing.T) {
	ikm := unhex(t, "0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt := unhex(t, "000102030405060708090a0b0c")
	info := unhex(t, "f0f1f2f3f4f5f6f7f8f9")

	wantPRK := unhex(t, "077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5")
	wantOKM := unhex(t, "3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf"+
		"34007208d5b887185865")

	prk := Extract(salt, ikm)
	if !bytes.Equal(prk[:], wantPRK) {
		t.Fatalf("PRK mismatch:\n got %x\nwant %x", prk[:], wantPRK)
	}

	okm, err := Expand(prk, info, 42)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !bytes.Equal(okm, wantOKM) {
		t.Fatalf("OKM mismatch:\n got %x\nwant %x", okm, wantOKM)
	}

	derived, err := Derive(ikm, salt, info, 42)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !bytes.Equal(derived, wantOKM) {
		t.Fatalf("Derive mismatch:\n got %x\nwant %x", derived, wantOKM)
	}
}

func TestHKDFExpandTooLong(t *testing.T) {
	var prk [hashSize]byte
	if _, err := Expand(prk, nil, maxExpandLen+1); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHKDFDeriveMultipleIsPrefixSplit(t *testing.T) {
	ikm := []byte("initial keying material")
	salt := []byte("salt")
	info := []byte("meshcore handshake")

	whole, err := Derive(ikm, salt, info, 96)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	parts, err := DeriveMultiple(ikm, salt, info, []int{32, 32, 32})
	if err != nil {
		t.Fatalf("DeriveMultiple: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}

	var reassembled []byte
	for _, p := range parts {
		reassembled = append(reassembled, p...)
	}
	if !bytes.Equal(reassembled, whole) {
		t.Fatalf("DeriveMultiple is not a prefix-split of a single expansion:\n got %x\nwant %x",
			reassembled, whole)
	}
}

func TestHKDFDifferentInfoDifferentOutput(t *testing.T) {
	ikm := []byte("shared secret")
	salt := []byte("salt")

	a, err := Derive(ikm, salt, []byte("context-a"), 32)
	if err != nil {
		t.Fatalf("Derive a: %v", err)
	}
	b, err := Derive(ikm, salt, []byte("context-b"), 32)
	if err != nil {
		t.Fatalf("Derive b: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("different info strings produced identical output")
	}
}
