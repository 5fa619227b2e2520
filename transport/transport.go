// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package transport defines the capability set the mesh core consumes
// to move opaque byte frames between peers (§6), plus an in-memory
// implementation used by tests and local demos.
package transport

import (
	"sync"
)

// Transport is the capability set §6 names: send, the three
// inbound callbacks, and a start/stop lifecycle. The core never
// interprets framing below the handshake type byte (§4.7) — everything
// past that is opaque to this interface.
type Transport interface {
	// Send delivers payload to peerID. It may fail asynchronously at the
	// link layer; callers learn that only via a later
	// on_peer_disconnected, matching §6's completion-based original.
	Send(peerID string, payload []byte) error
	Start() error
	Stop() error
}

// Handlers are the inbound callbacks a Transport invokes. A Transport
// implementation holds one Handlers value and calls into it from
// whatever goroutine the underlying link delivers events on — callers
// must treat these as running concurrently with the application
// goroutine (§5).
type Handlers struct {
	OnMessage         func(peerID string, payload []byte)
	OnPeerConnected   func(peerID string)
	OnPeerDisconnected func(peerID string)
}

// Loopback is an in-memory Transport connecting a fixed set of named
// peers within one process — every Send is delivered asynchronously, on
// a new goroutine, to the addressed peer's Handlers. It exists for tests and local demos
// that want a real Transport implementation without a network.
type Loopback struct {
	mu    sync.RWMutex
	selfID string
	peers *Hub
	h     Handlers

	started bool
}

// Hub is the shared registry backing a group of Loopback transports
// constructed via NewLoopbackHub, so each one's Send reaches the others
// registered against the same hub.
type Hub struct {
	mu      sync.RWMutex
	members map[string]*Loopback
}

// NewLoopbackHub constructs an empty hub. Call Join for each peer that
// should be able to reach the others.
func NewLoopbackHub() *Hub {
	return &Hub{members: make(map[string]*Loopback)}
}

// Join registers selfID against the hub and returns its Transport,
// wired to invoke h as frames and connect/disconnect events arrive.
func (hub *Hub) Join(selfID string, h Handlers) *Loopback {
	lb := &Loopback{selfID: selfID, peers: hub, h: h}
	hub.mu.Lock()
	hub.members[selfID] = lb
	hub.mu.Unlock()
	return lb
}

// Start marks the transport active, notifies every already-started peer
// via OnPeerConnected, and receives an OnPeerConnected for every other
// joined peer, started or not.
func (lb *Loopback) Start() error {
	lb.mu.Lock()
	lb.started = true
	lb.mu.Unlock()

	lb.peers.mu.RLock()
	others := make([]*Loopback, 0, len(lb.peers.members))
	for id, peer := range lb.peers.members {
		if id != lb.selfID {
			others = append(others, peer)
		}
	}
	lb.peers.mu.RUnlock()

	for _, peer := range others {
		if peer.isStarted() && peer.h.OnPeerConnected != nil {
			peer.h.OnPeerConnected(lb.selfID)
		}
		if lb.h.OnPeerConnected != nil {
			lb.h.OnPeerConnected(peer.selfID)
		}
	}
	return nil
}

func (lb *Loopback) isStarted() bool {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.started
}

// Stop marks the transport inactive and notifies connected peers via
// OnPeerDisconnected.
func (lb *Loopback) Stop() error {
	lb.mu.Lock()
	lb.started = false
	lb.mu.Unlock()

	lb.peers.mu.RLock()
	defer lb.peers.mu.RUnlock()
	for id, peer := range lb.peers.members {
		if id == lb.selfID {
			continue
		}
		if peer.h.OnPeerDisconnected != nil {
			peer.h.OnPeerDisconnected(lb.selfID)
		}
	}
	return nil
}

// Send looks up peerID in the shared hub and, if both sides are
// started, delivers payload to its OnMessage handler on a new
// goroutine — a real link never calls back into the sender's own call
// stack, and callers (notably the handshake and mesh layers, which
// hold their own locks across a Send) depend on that not happening here.
func (lb *Loopback) Send(peerID string, payload []byte) error {
	lb.peers.mu.RLock()
	peer, ok := lb.peers.members[peerID]
	lb.peers.mu.RUnlock()
	if !ok {
		return ErrUnknownPeer
	}
	if !lb.isStarted() || !peer.isStarted() {
		return ErrNotStarted
	}
	if peer.h.OnMessage != nil {
		frame := append([]byte(nil), payload...)
		go peer.h.OnMessage(lb.selfID, frame)
	}
	return nil
}
