// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import "encoding/binary"

// sha256BlockSize is the size, in bytes, of one SHA-256 compression
// block (FIPS 180-4 §5.1.1: 512 bits).
const sha256BlockSize = 64

// sha256Size is the size, in bytes, of a SHA-256 digest.
const sha256Size = 32

var sha256InitialState = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var sha256RoundConstants = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// sha256Hasher is a from-scratch, streaming SHA-256 implementation
// (FIPS 180-4). The noise transcript hash and HKDF both build on this
// rather than crypto/sha256, keeping the hash primitive in the same
// from-scratch set as the AEAD and the X25519 ladder.
type sha256Hasher struct {
	state  [8]uint32
	buf    [sha256BlockSize]byte
	buflen int
	length uint64 // total bytes written, for the length suffix
}

func newSHA256() *sha256Hasher {
	h := &sha256Hasher{state: sha256InitialState}
	return h
}

func (h *sha256Hasher) Write(p []byte) {
	h.length += uint64(len(p))
	if h.buflen > 0 {
		n := copy(h.buf[h.buflen:], p)
		h.buflen += n
		p = p[n:]
		if h.buflen == sha256BlockSize {
			h.block(h.buf[:])
			h.buflen = 0
		}
	}
	for len(p) >= sha256BlockSize {
		h.block(p[:sha256BlockSize])
		p = p[sha256BlockSize:]
	}
	if len(p) > 0 {
		h.buflen = copy(h.buf[:], p)
	}
}

// Sum finalizes the hash and returns the digest, without mutating the
// hasher beyond normal Go value semantics (a fresh copy is padded).
func (h *sha256Hasher) Sum() [sha256Size]byte {
	clone := *h
	clone.pad()
	var out [sha256Size]byte
	for i, w := range clone.state {
		binary.BigEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func (h *sha256Hasher) pad() {
	bitLen := h.length * 8
	h.Write([]byte{0x80})
	for h.buflen != 56 {
		h.Write([]byte{0x00})
	}
	var lenBytes [8]byte
	binary.BigEndian.PutUint64(lenBytes[:], bitLen)
	// appending the length must not re-enter the length counter, so
	// write the final block directly rather than through Write.
	copy(h.buf[56:], lenBytes[:])
	h.block(h.buf[:])
	h.buflen = 0
}

func sha256Rotr(x uint32, n uint) uint32 { return x>>n | x<<(32-n) }

func (h *sha256Hasher) block(p []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 64; i++ {
		s0 := sha256Rotr(w[i-15], 7) ^ sha256Rotr(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := sha256Rotr(w[i-2], 17) ^ sha256Rotr(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, hh := h.state[0], h.state[1], h.state[2], h.state[3],
		h.state[4], h.state[5], h.state[6], h.state[7]

	for i := 0; i < 64; i++ {
		s1 := sha256Rotr(e, 6) ^ sha256Rotr(e, 11) ^ sha256Rotr(e, 25)
		ch := (e & f) ^ (^e & g)
		temp1 := hh + s1 + ch + sha256RoundConstants[i] + w[i]
		s0 := sha256Rotr(a, 2) ^ sha256Rotr(a, 13) ^ sha256Rotr(a, 22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		temp2 := s0 + maj

		hh = g
		g = f
		f = e
		e = d + temp1
		d = c
		c = b
		b = a
		a = temp1 + temp2
	}

	h.state[0] += a
	h.state[1] += b
	h.state[2] += c
	h.state[3] += d
	h.state[4] += e
	h.state[5] += f
	h.state[6] += g
	h.state[7] += hh
}

// sha256Sum hashes data in one call.
func sha256Sum(data ...[]byte) [sha256Size]byte {
	h := newSHA256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum()
}

// hmacSHA256 implements HMAC (RFC 2104) over sha256Hasher.
func hmacSHA256(key, msg []byte) [sha256Size]byte {
	if len(key) > sha256BlockSize {
		sum := sha256Sum(key)
		key = sum[:]
	}
	var ipad, opad [sha256BlockSize]byte
	copy(ipad[:], key)
	copy(opad[:], key)
	for i := range ipad {
		ipad[i] ^= 0x36
		opad[i] ^= 0x5c
	}

	inner := sha256Sum(ipad[:], msg)
	return sha256Sum(opad[:], inner[:])
}
