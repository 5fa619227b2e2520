// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package noise

import (
	"errors"

	"github.com/airmesh/meshcore/crypto"
)

// Message sizes for the three Noise XX messages (§4.5).
const (
	Message1Size = 32
	Message2Size = 32 + 32 + 16
	Message3Size = 32 + 16
)

var (
	// ErrNotComplete is returned by Split if requested before msg3 has
	// been written (initiator) or read (responder).
	ErrNotComplete = errors.New("noise: handshake not complete")
	// ErrWrongMessageSize is returned when a caller feeds a message of
	// the wrong length for the current step.
	ErrWrongMessageSize = errors.New("noise: wrong message size for this step")
	// ErrWrongStep is returned when a writer/reader is called out of
	// the pattern's fixed message order.
	ErrWrongStep = errors.New("noise: handshake called out of order")
)

// Role distinguishes the two sides of a Noise XX handshake.
type Role int

const (
	Initiator Role = iota
	Responder
)

// Result is what HandshakeCore yields on completion: the two transport
// keys already assigned per §4.5's role rule, the transcript hash, and
// the verified remote static public key.
type Result struct {
	SendKey       [32]byte
	RecvKey       [32]byte
	HandshakeHash [32]byte
	RemoteStatic  [crypto.X25519KeySize]byte
}

// HandshakeCore drives one Noise_XX_25519_ChaChaPoly_SHA256 handshake.
// One instance handles exactly one handshake attempt with one peer; it is
// discarded (successfully or not) once Split succeeds or a step fails.
// Not safe for concurrent use.
type HandshakeCore struct {
	suite crypto.Suite
	ss    *SymmetricState
	role  Role
	step  int

	localStaticSK [crypto.X25519KeySize]byte
	localStaticPK [crypto.X25519KeySize]byte

	localEphemeralSK [crypto.X25519KeySize]byte
	localEphemeralPK [crypto.X25519KeySize]byte

	remoteStatic    [crypto.X25519KeySize]byte
	remoteEphemeral [crypto.X25519KeySize]byte

	remoteStaticSet bool
	done            bool
}

// NewHandshakeCore constructs a fresh handshake state for one side. The
// caller's static key pair is supplied (loaded once at process start by
// identity.KeyManager); one ephemeral pair per handshake is generated
// internally, in the first message this side writes.
func NewHandshakeCore(suite crypto.Suite, role Role, staticSK, staticPK [crypto.X25519KeySize]byte) *HandshakeCore {
	return &HandshakeCore{
		suite:         suite,
		ss:            NewSymmetricState(suite),
		role:          role,
		localStaticSK: staticSK,
		localStaticPK: staticPK,
	}
}

// WriteMessage1 emits msg1 = e. Only valid for the initiator at step 0.
func (h *HandshakeCore) WriteMessage1() ([]byte, error) {
	if h.role != Initiator || h.step != 0 {
		return nil, ErrWrongStep
	}
	sk, pk, err := h.suite.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	h.localEphemeralSK, h.localEphemeralPK = sk, pk
	h.ss.MixHash(pk[:])
	h.step = 1
	return append([]byte(nil), pk[:]...), nil
}

// ReadMessage1 consumes msg1 = e. Only valid for the responder at step 0.
func (h *HandshakeCore) ReadMessage1(msg []byte) error {
	if h.role != Responder || h.step != 0 {
		return ErrWrongStep
	}
	if len(msg) != Message1Size {
		return ErrWrongMessageSize
	}
	copy(h.remoteEphemeral[:], msg)
	h.ss.MixHash(h.remoteEphemeral[:])
	h.step = 1
	return nil
}

// WriteMessage2 emits msg2 = e, ee, s, es. Only valid for the responder
// at step 1 (immediately after ReadMessage1).
func (h *HandshakeCore) WriteMessage2() ([]byte, error) {
	if h.role != Responder || h.step != 1 {
		return nil, ErrWrongStep
	}
	sk, pk, err := h.suite.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	h.localEphemeralSK, h.localEphemeralPK = sk, pk
	h.ss.MixHash(pk[:])

	ee := h.suite.DH(h.localEphemeralSK, h.remoteEphemeral)
	h.ss.MixKey(ee[:]) // ee

	sCipher, err := h.ss.EncryptAndHash(h.localStaticPK[:])
	if err != nil {
		return nil, err
	}

	es := h.suite.DH(h.localStaticSK, h.remoteEphemeral)
	h.ss.MixKey(es[:]) // es (responder: DH(s, re))

	h.step = 2
	out := make([]byte, 0, Message2Size)
	out = append(out, pk[:]...)
	out = append(out, sCipher...)
	return out, nil
}

// ReadMessage2 consumes msg2 = e, ee, s, es. Only valid for the initiator
// at step 1 (immediately after WriteMessage1).
func (h *HandshakeCore) ReadMessage2(msg []byte) error {
	if h.role != Initiator || h.step != 1 {
		return ErrWrongStep
	}
	if len(msg) != Message2Size {
		return ErrWrongMessageSize
	}
	copy(h.remoteEphemeral[:], msg[:32])
	h.ss.MixHash(h.remoteEphemeral[:])

	ee := h.suite.DH(h.localEphemeralSK, h.remoteEphemeral)
	h.ss.MixKey(ee[:]) // ee

	rs, err := h.ss.DecryptAndHash(msg[32:])
	if err != nil {
		return err
	}
	if len(rs) != crypto.X25519KeySize {
		return ErrWrongMessageSize
	}
	copy(h.remoteStatic[:], rs)
	h.remoteStaticSet = true

	es := h.suite.DH(h.localEphemeralSK, h.remoteStatic)
	h.ss.MixKey(es[:]) // es (initiator: DH(e, rs))

	h.step = 2
	return nil
}

// WriteMessage3 emits msg3 = s, se and completes the handshake for the
// initiator. Only valid at step 2 (immediately after ReadMessage2).
func (h *HandshakeCore) WriteMessage3() ([]byte, error) {
	if h.role != Initiator || h.step != 2 {
		return nil, ErrWrongStep
	}
	sCipher, err := h.ss.EncryptAndHash(h.localStaticPK[:])
	if err != nil {
		return nil, err
	}
	se := h.suite.DH(h.localStaticSK, h.remoteEphemeral)
	h.ss.MixKey(se[:]) // se (initiator: DH(s, re))

	h.step = 3
	h.done = true
	return sCipher, nil
}

// ReadMessage3 consumes msg3 = s, se and completes the handshake for the
// responder. Only valid at step 2 (immediately after WriteMessage2).
func (h *HandshakeCore) ReadMessage3(msg []byte) error {
	if h.role != Responder || h.step != 2 {
		return ErrWrongStep
	}
	if len(msg) != Message3Size {
		return ErrWrongMessageSize
	}
	rs, err := h.ss.DecryptAndHash(msg)
	if err != nil {
		return err
	}
	if len(rs) != crypto.X25519KeySize {
		return ErrWrongMessageSize
	}
	copy(h.remoteStatic[:], rs)
	h.remoteStaticSet = true

	se := h.suite.DH(h.localEphemeralSK, h.remoteStatic)
	h.ss.MixKey(se[:]) // se (responder: DH(e, rs))

	h.step = 3
	h.done = true
	return nil
}

// Split finalizes the handshake and returns the role-assigned transport
// keys, the transcript hash, and the peer's verified static public key.
// It fails if the handshake has not reached step 3.
func (h *HandshakeCore) Split() (Result, error) {
	if !h.done {
		return Result{}, ErrNotComplete
	}
	if !h.remoteStaticSet {
		return Result{}, ErrNotComplete
	}
	ka, kb := h.ss.Split()

	res := Result{
		HandshakeHash: h.ss.Hash(),
		RemoteStatic:  h.remoteStatic,
	}
	if h.role == Initiator {
		res.SendKey, res.RecvKey = ka, kb
	} else {
		res.SendKey, res.RecvKey = kb, ka
	}
	return res, nil
}

// LocalEphemeralPublic exposes the caller's ephemeral public key, mostly
// useful for logging/diagnostics.
func (h *HandshakeCore) LocalEphemeralPublic() [crypto.X25519KeySize]byte {
	return h.localEphemeralPK
}
