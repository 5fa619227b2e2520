// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package session implements the bidirectional AEAD channel (§4.6)
// produced by a completed Noise XX handshake: independent send/recv
// nonce counters, explicit nonce-on-wire framing, and key zeroization.
package session

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/airmesh/meshcore/crypto"
	"github.com/airmesh/meshcore/noise"
)

var (
	// ErrDestroyed is returned by any operation on a Session after
	// Destroy has been called.
	ErrDestroyed = errors.New("session: destroyed")
	// ErrNonceExhausted is returned by Encrypt once send_nonce has
	// reached its maximum value.
	ErrNonceExhausted = errors.New("session: nonce counter exhausted")
	// ErrFrameTooShort is returned by Decrypt when the frame is shorter
	// than the 8-byte nonce prefix plus the AEAD tag.
	ErrFrameTooShort = errors.New("session: frame shorter than nonce+tag")
	// ErrNonceMismatch is returned by Decrypt when the frame's carried
	// nonce does not match the expected recv_nonce — out-of-order
	// frames are a delivery-engine concern (§4.8), not accepted here.
	ErrNonceMismatch = errors.New("session: unexpected nonce, out-of-order frame rejected")
	// ErrImportIncomplete is returned by ImportState when the imported
	// state is not marked Established.
	ErrImportIncomplete = errors.New("session: incomplete state on import")
)

// frameNoncePrefixSize is the 8-byte big-endian send_nonce prefix
// carried on the wire ahead of ciphertext‖tag (§6 "Session frame").
const frameNoncePrefixSize = 8

// Role mirrors noise.Role so callers of this package don't need to
// import noise merely to record which side established the session.
type Role = noise.Role

const (
	Initiator = noise.Initiator
	Responder = noise.Responder
)

// State is the externally visible snapshot used by ExportState/ImportState.
type State struct {
	SendKey       [32]byte
	RecvKey       [32]byte
	SendNonce     uint64
	RecvNonce     uint64
	HandshakeHash [32]byte
	Role          Role
	Established   bool
}

// Session is the bidirectional, authenticated channel between two mesh
// peers after a completed handshake. Not safe for concurrent use without
// external synchronization, except that encrypt/decrypt/export/destroy
// each individually hold the internal lock for the duration of the call,
// since a Session is reachable from both the application goroutine and
// transport callback goroutines (§5).
type Session struct {
	mu sync.RWMutex

	aead crypto.AEAD

	sendKey [32]byte
	recvKey [32]byte

	sendNonce uint64
	recvNonce uint64

	handshakeHash [32]byte
	role          Role

	established bool
}

// New constructs a Session from a completed noise.Result, assigning send
// and recv keys per the role rule already applied by HandshakeCore.Split.
func New(result noise.Result, role Role) *Session {
	return NewWithAEAD(result, role, crypto.DefaultAEAD())
}

// NewWithAEAD is New with an explicit AEAD provider, for hosts that
// substitute a hardware-accelerated implementation (§9 provider injection).
func NewWithAEAD(result noise.Result, role Role, aead crypto.AEAD) *Session {
	return &Session{
		aead:          aead,
		sendKey:       result.SendKey,
		recvKey:       result.RecvKey,
		handshakeHash: result.HandshakeHash,
		role:          role,
		established:  true,
	}
}

// Encrypt seals plaintext under the current send_nonce, returning
// send_nonce(8 bytes, big-endian) ‖ ciphertext ‖ tag, then increments
// send_nonce.
func (s *Session) Encrypt(plaintext, aad []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.established {
		return nil, ErrDestroyed
	}
	if s.sendNonce == ^uint64(0) {
		return nil, ErrNonceExhausted
	}

	var nonce [crypto.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[crypto.NonceSize-8:], s.sendNonce)

	key := s.sendKey
	sealed, err := s.aead.Encrypt(&key, &nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}

	out := make([]byte, frameNoncePrefixSize+len(sealed))
	binary.BigEndian.PutUint64(out[:frameNoncePrefixSize], s.sendNonce)
	copy(out[frameNoncePrefixSize:], sealed)

	s.sendNonce++
	return out, nil
}

// Decrypt opens a frame produced by the peer's Encrypt: it extracts the
// carried nonce, rejects it outright if it doesn't match the expected
// recv_nonce (out-of-order delivery is not tolerated at this layer), then
// verifies and decrypts. On success recv_nonce advances; on failure it
// does not, so a verification failure never lets a replay slip through
// once the counter has moved past it.
func (s *Session) Decrypt(frame, aad []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.established {
		return nil, ErrDestroyed
	}
	if len(frame) < frameNoncePrefixSize+crypto.TagSize {
		return nil, ErrFrameTooShort
	}

	carriedNonce := binary.BigEndian.Uint64(frame[:frameNoncePrefixSize])
	if carriedNonce != s.recvNonce {
		return nil, ErrNonceMismatch
	}

	var nonce [crypto.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[crypto.NonceSize-8:], s.recvNonce)

	key := s.recvKey
	plaintext, err := s.aead.Decrypt(&key, &nonce, frame[frameNoncePrefixSize:], aad)
	if err != nil {
		return nil, err
	}

	s.recvNonce++
	return plaintext, nil
}

// Destroy zeroes both keys and marks the session unestablished. Every
// subsequent operation fails with ErrDestroyed.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sendKey {
		s.sendKey[i] = 0
	}
	for i := range s.recvKey {
		s.recvKey[i] = 0
	}
	s.established = false
}

// Established reports whether the session is still usable.
func (s *Session) Established() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.established
}

// HandshakeHash returns the transcript hash bound at Split.
func (s *Session) HandshakeHash() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handshakeHash
}

// Role reports which side of the handshake produced this session.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// ExportState snapshots the session for migration/persistence — keys,
// counters, role, and established flag, preserving counters exactly.
func (s *Session) ExportState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		SendKey:       s.sendKey,
		RecvKey:       s.recvKey,
		SendNonce:     s.sendNonce,
		RecvNonce:     s.recvNonce,
		HandshakeHash: s.handshakeHash,
		Role:          s.role,
		Established:   s.established,
	}
}

// ImportState restores a Session from a previously exported State,
// failing with ErrImportIncomplete if the state was never established.
func ImportState(st State, aead crypto.AEAD) (*Session, error) {
	if !st.Established {
		return nil, ErrImportIncomplete
	}
	if aead == nil {
		aead = crypto.DefaultAEAD()
	}
	return &Session{
		aead:          aead,
		sendKey:       st.SendKey,
		recvKey:       st.RecvKey,
		sendNonce:     st.SendNonce,
		recvNonce:     st.RecvNonce,
		handshakeHash: st.HandshakeHash,
		role:          st.Role,
		established:   st.Established,
	}, nil
}
