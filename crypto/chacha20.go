// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package crypto implements the cryptographic core from RFC 8439
// (ChaCha20-Poly1305), RFC 5869 (HKDF-SHA256), and RFC 7748 (X25519)
// without delegating to an existing AEAD or curve implementation, per
// the provider-injection design: this is the reference provider, and
// hardware-accelerated alternatives may implement the same interfaces.
package crypto

import "encoding/binary"

const (
	chachaKeySize   = 32
	chachaNonceSize = 12
	chachaBlockSize = 64
	chachaRounds    = 20
)

// chachaBlock runs the ChaCha20 block function (RFC 8439 §2.3) over the
// given 32-byte key, 12-byte nonce, and 32-bit counter, writing the
// 64-byte keystream block into out.
func chachaBlock(out *[chachaBlockSize]byte, key *[chachaKeySize]byte, counter uint32, nonce *[chachaNonceSize]byte) {
	var s [16]uint32
	s[0] = 0x61707865
	s[1] = 0x3320646e
	s[2] = 0x79622d32
	s[3] = 0x6b206574
	s[4] = binary.LittleEndian.Uint32(key[0:4])
	s[5] = binary.LittleEndian.Uint32(key[4:8])
	s[6] = binary.LittleEndian.Uint32(key[8:12])
	s[7] = binary.LittleEndian.Uint32(key[12:16])
	s[8] = binary.LittleEndian.Uint32(key[16:20])
	s[9] = binary.LittleEndian.Uint32(key[20:24])
	s[10] = binary.LittleEndian.Uint32(key[24:28])
	s[11] = binary.LittleEndian.Uint32(key[28:32])
	s[12] = counter
	s[13] = binary.LittleEndian.Uint32(nonce[0:4])
	s[14] = binary.LittleEndian.Uint32(nonce[4:8])
	s[15] = binary.LittleEndian.Uint32(nonce[8:12])

	w := s

	quarterRound := func(a, b, c, d int) {
		w[a] += w[b]
		w[d] ^= w[a]
		w[d] = (w[d] << 16) | (w[d] >> 16)
		w[c] += w[d]
		w[b] ^= w[c]
		w[b] = (w[b] << 12) | (w[b] >> 20)
		w[a] += w[b]
		w[d] ^= w[a]
		w[d] = (w[d] << 8) | (w[d] >> 24)
		w[c] += w[d]
		w[b] ^= w[c]
		w[b] = (w[b] << 7) | (w[b] >> 25)
	}

	for i := 0; i < chachaRounds; i += 2 {
		quarterRound(0, 4, 8, 12)
		quarterRound(1, 5, 9, 13)
		quarterRound(2, 6, 10, 14)
		quarterRound(3, 7, 11, 15)
		quarterRound(0, 5, 10, 15)
		quarterRound(1, 6, 11, 12)
		quarterRound(2, 7, 8, 13)
		quarterRound(3, 4, 9, 14)
	}

	for i := range w {
		w[i] += s[i]
	}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], w[i])
	}
}

// chachaXOR encrypts (or decrypts — the operation is an involution) src
// into dst using ChaCha20 keystream starting at the given initial
// counter, per RFC 8439 §2.4. dst and src may overlap exactly.
func chachaXOR(dst, src []byte, key *[chachaKeySize]byte, nonce *[chachaNonceSize]byte, counter uint32) {
	var block [chachaBlockSize]byte
	for len(src) > 0 {
		chachaBlock(&block, key, counter, nonce)
		n := len(src)
		if n > chachaBlockSize {
			n = chachaBlockSize
		}
		for i := 0; i < n; i++ {
			dst[i] = src[i] ^ block[i]
		}
		src = src[n:]
		dst = dst[n:]
		counter++
	}
}
