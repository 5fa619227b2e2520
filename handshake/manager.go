// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package handshake implements the per-peer handshake orchestrator
// (§4.7): a state machine driving noise.HandshakeCore over an unreliable
// transport, with timeouts, simultaneous-open tie-breaking, and session
// hand-off.
package handshake

import (
	"sync"
	"time"

	"github.com/airmesh/meshcore/crypto"
	"github.com/airmesh/meshcore/mesherr"
	"github.com/airmesh/meshcore/meshlog"
	"github.com/airmesh/meshcore/noise"
)

// Wire framing type bytes (§4.7).
const (
	TypeHandshakeInit     byte = 1
	TypeHandshakeResponse byte = 2
	TypeHandshakeFinal    byte = 3
)

// DefaultTimeout is the per-peer handshake deadline (§5: "handshake
// default 30s").
const DefaultTimeout = 30 * time.Second

// Transport is the minimal send capability the manager needs; a host's
// full transport (§6) satisfies this trivially.
type Transport interface {
	Send(peerID string, payload []byte) error
}

// Callbacks are the typed event slots the application registers (§9
// "event emission" — fire-and-forget, no return value is consulted).
type Callbacks struct {
	OnProgress func(peerID string, step int)
	OnComplete func(peerID string, result noise.Result, role noise.Role, duration time.Duration)
	OnFailed   func(peerID string, code mesherr.Code, err error)
}

// Manager is the per-peer handshake orchestrator. Not safe for
// concurrent use without external synchronization, except that its own
// methods each hold the internal lock for their duration, since incoming
// messages and application-initiated handshakes can arrive from
// different goroutines in a real host.
type Manager struct {
	mu sync.Mutex

	suite    crypto.Suite
	staticSK [crypto.X25519KeySize]byte
	staticPK [crypto.X25519KeySize]byte
	selfID   string

	timeout time.Duration
	pending *pendingTable
	limiter *peerRateLimiter

	log       meshlog.Logger
	callbacks Callbacks
}

// Config bundles Manager construction parameters.
type Config struct {
	Suite     crypto.Suite
	StaticSK  [crypto.X25519KeySize]byte
	StaticPK  [crypto.X25519KeySize]byte
	// SelfID is this node's own peer identifier, used only to break ties
	// on simultaneous open (§4.7). It should be the hex encoding of
	// StaticPK (crypto.PublicKey.Hex) so the tie-break can compare the
	// two sides' keys byte-wise via crypto.PublicKey.Less rather than
	// falling back to a plain string compare.
	SelfID    string
	Timeout   time.Duration
	Log       meshlog.Logger
	Callbacks Callbacks
}

// NewManager constructs a Manager. cfg.Suite defaults to
// crypto.DefaultSuite() and cfg.Timeout to DefaultTimeout if unset.
func NewManager(cfg Config) *Manager {
	if cfg.Suite == nil {
		cfg.Suite = crypto.DefaultSuite()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = meshlog.Discard
	}
	return &Manager{
		suite:     cfg.Suite,
		staticSK:  cfg.StaticSK,
		staticPK:  cfg.StaticPK,
		selfID:    cfg.SelfID,
		timeout:   cfg.Timeout,
		pending:   newPendingTable(),
		limiter:   newPeerRateLimiter(),
		log:       cfg.Log,
		callbacks: cfg.Callbacks,
	}
}

// Close stops the manager's background rate-limiter goroutine. It does
// not cancel in-flight handshakes — call Cancel per peer first if that
// matters to the caller.
func (m *Manager) Close() {
	m.limiter.Close()
}

// Initiate starts a handshake with peerID as the initiator. It returns a
// one-shot channel the caller can receive on for the outcome (§9's
// "waiter"); OnComplete/OnFailed fire regardless of whether the caller
// reads the channel.
func (m *Manager) Initiate(peerID string, transport Transport) (<-chan completionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pending.get(peerID); exists {
		return nil, mesherr.New(mesherr.HandshakeAlreadyInProgress, "handshake.Initiate", nil)
	}

	core := noise.NewHandshakeCore(m.suite, noise.Initiator, m.staticSK, m.staticPK)
	msg1, err := core.WriteMessage1()
	if err != nil {
		return nil, mesherr.New(mesherr.HandshakeFailed, "handshake.Initiate", err)
	}

	entry := &pendingEntry{
		peerID:    peerID,
		role:      noise.Initiator,
		step:      1,
		core:      core,
		startedAt: time.Now(),
		waiter:    make(chan completionResult, 1),
	}
	m.armTimeout(entry)
	m.pending.put(entry)

	if err := m.send(transport, peerID, TypeHandshakeInit, msg1); err != nil {
		m.failLocked(entry, mesherr.MessageSendFailed, err)
		return entry.waiter, nil
	}
	m.emitProgress(peerID, 1)
	return entry.waiter, nil
}

// OnIncoming processes a received handshake frame: msgType is the wire
// type byte (§4.7), payload is the raw Noise message that followed it.
func (m *Manager) OnIncoming(peerID string, msgType byte, payload []byte, transport Transport) error {
	if msgType == TypeHandshakeInit && !m.limiter.Allow(derivePeerKeyHint(peerID)) {
		return mesherr.New(mesherr.HandshakeFailed, "handshake.OnIncoming", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch msgType {
	case TypeHandshakeInit:
		return m.onInit(peerID, payload, transport)
	case TypeHandshakeResponse:
		return m.onResponse(peerID, payload, transport)
	case TypeHandshakeFinal:
		return m.onFinal(peerID, payload)
	default:
		return mesherr.New(mesherr.MessageInvalidFormat, "handshake.OnIncoming", nil)
	}
}

func (m *Manager) onInit(peerID string, payload []byte, transport Transport) error {
	if existing, ok := m.pending.get(peerID); ok {
		if existing.role != noise.Initiator {
			return mesherr.New(mesherr.HandshakeAlreadyInProgress, "handshake.onInit", nil)
		}
		// Simultaneous open: peer IDs are the two sides' static-key
		// identifiers (hex-encoded, by SelfID's contract), so both
		// sides reach the same deterministic tie-break independently
		// by comparing the decoded keys byte-wise. The side whose own
		// key sorts lower keeps initiating; the other yields its
		// outgoing attempt and accepts the incoming one instead. If
		// either ID doesn't decode as a hex public key, fall back to
		// the raw string compare rather than refusing the handshake.
		yield := m.selfID < peerID
		selfKey, selfErr := crypto.ParsePublicKeyHex(m.selfID)
		peerKey, peerErr := crypto.ParsePublicKeyHex(peerID)
		if selfErr == nil && peerErr == nil {
			yield = selfKey.Less(peerKey)
		}
		if yield {
			return mesherr.New(mesherr.HandshakeAlreadyInProgress, "handshake.onInit", nil)
		}
		m.cancelLocked(existing, mesherr.HandshakeAlreadyInProgress, nil)
	}

	core := noise.NewHandshakeCore(m.suite, noise.Responder, m.staticSK, m.staticPK)
	if err := core.ReadMessage1(payload); err != nil {
		return mesherr.New(mesherr.HandshakeDecryptionFailed, "handshake.onInit", err)
	}
	msg2, err := core.WriteMessage2()
	if err != nil {
		return mesherr.New(mesherr.HandshakeFailed, "handshake.onInit", err)
	}

	entry := &pendingEntry{
		peerID:    peerID,
		role:      noise.Responder,
		step:      2,
		core:      core,
		startedAt: time.Now(),
		waiter:    make(chan completionResult, 1),
	}
	m.armTimeout(entry)
	m.pending.put(entry)

	if err := m.send(transport, peerID, TypeHandshakeResponse, msg2); err != nil {
		m.failLocked(entry, mesherr.MessageSendFailed, err)
		return err
	}
	m.emitProgress(peerID, 2)
	return nil
}

func (m *Manager) onResponse(peerID string, payload []byte, transport Transport) error {
	entry, ok := m.pending.get(peerID)
	if !ok || entry.role != noise.Initiator || entry.step < 1 {
		return mesherr.New(mesherr.HandshakeInvalidState, "handshake.onResponse", nil)
	}
	if err := entry.core.ReadMessage2(payload); err != nil {
		m.failLocked(entry, mesherr.HandshakeDecryptionFailed, err)
		return err
	}
	msg3, err := entry.core.WriteMessage3()
	if err != nil {
		m.failLocked(entry, mesherr.HandshakeFailed, err)
		return err
	}
	entry.step = 3
	if err := m.send(transport, peerID, TypeHandshakeFinal, msg3); err != nil {
		m.failLocked(entry, mesherr.MessageSendFailed, err)
		return err
	}
	m.completeLocked(entry)
	return nil
}

func (m *Manager) onFinal(peerID string, payload []byte) error {
	entry, ok := m.pending.get(peerID)
	if !ok || entry.role != noise.Responder || entry.step != 2 {
		return mesherr.New(mesherr.HandshakeInvalidState, "handshake.onFinal", nil)
	}
	if err := entry.core.ReadMessage3(payload); err != nil {
		m.failLocked(entry, mesherr.HandshakeDecryptionFailed, err)
		return err
	}
	entry.step = 3
	m.completeLocked(entry)
	return nil
}

// Cancel clears the pending handshake for peerID, if any, rejecting its
// waiter with a failure. Idempotent: canceling an unknown peer is a no-op.
func (m *Manager) Cancel(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pending.get(peerID)
	if !ok {
		return
	}
	m.cancelLocked(entry, mesherr.HandshakeFailed, nil)
}

func (m *Manager) completeLocked(entry *pendingEntry) {
	result, err := entry.core.Split()
	if err != nil {
		m.failLocked(entry, mesherr.HandshakeFailed, err)
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	m.pending.delete(entry.peerID)

	duration := time.Since(entry.startedAt)
	entry.waiter <- completionResult{result: result, err: nil}
	close(entry.waiter)

	if m.callbacks.OnComplete != nil {
		m.callbacks.OnComplete(entry.peerID, result, entry.role, duration)
	}
	m.log.Infof("handshake complete with %s in %s", entry.peerID, duration)
}

func (m *Manager) failLocked(entry *pendingEntry, code mesherr.Code, cause error) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	m.pending.delete(entry.peerID)

	wrapped := mesherr.New(code, "handshake", cause)
	entry.waiter <- completionResult{err: wrapped}
	close(entry.waiter)

	if m.callbacks.OnFailed != nil {
		m.callbacks.OnFailed(entry.peerID, code, wrapped)
	}
	m.log.Errorf("handshake with %s failed: %v", entry.peerID, wrapped)
}

func (m *Manager) cancelLocked(entry *pendingEntry, code mesherr.Code, cause error) {
	m.failLocked(entry, code, cause)
}

func (m *Manager) armTimeout(entry *pendingEntry) {
	entry.deadline = time.Now().Add(m.timeout)
	entry.timer = time.AfterFunc(m.timeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		current, ok := m.pending.get(entry.peerID)
		if !ok || current != entry {
			return // already completed/canceled/superseded
		}
		m.failLocked(entry, mesherr.HandshakeTimeout, nil)
	})
}

func (m *Manager) emitProgress(peerID string, step int) {
	if m.callbacks.OnProgress != nil {
		m.callbacks.OnProgress(peerID, step)
	}
}

func (m *Manager) send(transport Transport, peerID string, msgType byte, payload []byte) error {
	framed := make([]byte, 0, 1+len(payload))
	framed = append(framed, msgType)
	framed = append(framed, payload...)
	return transport.Send(peerID, framed)
}

// derivePeerKeyHint turns a peer ID string into a rate-limiter bucket
// key. Peer IDs are typically the hex/base64 static public key already;
// hashing keeps the limiter's bucket space fixed-size regardless of the
// ID's actual encoding or length.
func derivePeerKeyHint(peerID string) crypto.PublicKey {
	return crypto.PublicKey(crypto.DefaultSuite().Hash([]byte(peerID)))
}
