// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import "testing"

func TestPrivateKeyPublicMatchesSharedSecret(t *testing.T) {
	skA, pkA, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	skB, pkB, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}

	privA, privB := PrivateKey(skA), PrivateKey(skB)
	pubA, pubB := PublicKey(pkA), PublicKey(pkB)

	if !privA.Public().Equal(pubA) {
		t.Fatalf("PrivateKey.Public() disagrees with GenerateX25519KeyPair's public half")
	}

	sharedA := privA.SharedSecret(pubB)
	sharedB := privB.SharedSecret(pubA)
	if sharedA != sharedB {
		t.Fatalf("PrivateKey.SharedSecret is not symmetric")
	}
}

func TestPublicKeyBase64RoundTrip(t *testing.T) {
	_, pk, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	pub := PublicKey(pk)

	encoded := pub.Base64()
	decoded, err := ParsePublicKeyBase64(encoded)
	if err != nil {
		t.Fatalf("ParsePublicKeyBase64: %v", err)
	}
	if !decoded.Equal(pub) {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, pub)
	}
}

func TestParsePublicKeyBase64RejectsWrongLength(t *testing.T) {
	if _, err := ParsePublicKeyBase64("dG9vc2hvcnQ="); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for undersized key, got %v", err)
	}
}

func TestPrivateKeyZero(t *testing.T) {
	_, _, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	sk, _, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	priv := PrivateKey(sk)
	if priv.IsZero() {
		t.Fatalf("freshly generated key reported as zero")
	}
	priv.Zero()
	if !priv.IsZero() {
		t.Fatalf("Zero() did not clear the key")
	}
}

func TestPublicKeyLessIsAntisymmetricAndIrreflexive(t *testing.T) {
	a := PublicKey{0x01}
	b := PublicKey{0x02}

	if a.Less(a) {
		t.Fatalf("a key must not be Less than itself")
	}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("Less ordering inconsistent for distinct keys")
	}
}
