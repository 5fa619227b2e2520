// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import (
	"bytes"
	"testing"
)

// TestChaCha20BlockRFC8439Vector checks the keystream block from RFC 8439
// §2.3.2, counter=1.
func TestChaCha20BlockRFC8439Vector(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	var nonce [12]byte
	nonce[3] = 0x09
	nonce[7] = 0x4a

	want := unhex(t, "10f1e7e4d13b5915500fdd1fa32071c4c7d1f4c733c068030422aa9ac3d46c4e"+
		"d2826446079faa0914c2d705d98b02a2b5129cd1de164eb9cbd083e8a2503c4e")

	var out [64]byte
	chachaBlock(&out, &key, 1, &nonce)
	if !bytes.Equal(out[:], want) {
		t.Fatalf("block mismatch:\n got %x\nwant %x", out[:], want)
	}
}

func TestChaCha20XORRoundTrip(t *testing.T) {
	var key [32]byte
	var nonce [12]byte
	for i := range key {
		key[i] = byte(i * 7)
	}
	for i := range nonce {
		nonce[i] = byte(i + 1)
	}

	plaintext := bytes.Repeat([]byte("mesh realtime payload "), 13)
	ciphertext := make([]byte, len(plaintext))
	chachaXOR(ciphertext, plaintext, &key, &nonce, 0)

	if bytes.Equal(ciphertext, plaintext) {
		t.Fatalf("ciphertext equals plaintext, XOR did nothing")
	}

	decrypted := make([]byte, len(ciphertext))
	chachaXOR(decrypted, ciphertext, &key, &nonce, 0)
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", decrypted, plaintext)
	}
}

func TestChaCha20DifferentCountersDifferentKeystream(t *testing.T) {
	var key [32]byte
	var nonce [12]byte

	var b0, b1 [64]byte
	chachaBlock(&b0, &key, 0, &nonce)
	chachaBlock(&b1, &key, 1, &nonce)
	if bytes.Equal(b0[:], b1[:]) {
		t.Fatalf("counter 0 and 1 produced identical keystream blocks")
	}
}
