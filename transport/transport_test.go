// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package transport

import (
	"testing"
	"time"
)

func TestLoopbackDeliversMessageBetweenJoinedPeers(t *testing.T) {
	hub := NewLoopbackHub()

	type delivery struct {
		fromID  string
		payload []byte
	}
	deliveries := make(chan delivery, 1)

	a := hub.Join("a", Handlers{})
	b := hub.Join("b", Handlers{
		OnMessage: func(peerID string, payload []byte) {
			deliveries <- delivery{fromID: peerID, payload: payload}
		},
	})

	if err := a.Start(); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("b.Start: %v", err)
	}

	if err := a.Send("b", []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.fromID != "a" || string(d.payload) != "hello" {
			t.Fatalf("got from=%q payload=%q, want a/hello", d.fromID, d.payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestLoopbackSendToUnknownPeerFails(t *testing.T) {
	hub := NewLoopbackHub()
	a := hub.Join("a", Handlers{})
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Send("ghost", []byte("x")); err != ErrUnknownPeer {
		t.Fatalf("got %v, want ErrUnknownPeer", err)
	}
}

func TestLoopbackSendBeforeStartFails(t *testing.T) {
	hub := NewLoopbackHub()
	a := hub.Join("a", Handlers{})
	b := hub.Join("b", Handlers{})
	_ = b
	if err := a.Send("b", []byte("x")); err != ErrNotStarted {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}

func TestLoopbackStartNotifiesAlreadyStartedPeers(t *testing.T) {
	hub := NewLoopbackHub()

	var aConnectedTo, bConnectedTo string
	a := hub.Join("a", Handlers{OnPeerConnected: func(peerID string) { aConnectedTo = peerID }})
	b := hub.Join("b", Handlers{OnPeerConnected: func(peerID string) { bConnectedTo = peerID }})

	if err := a.Start(); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("b.Start: %v", err)
	}

	if bConnectedTo != "a" {
		t.Fatalf("bConnectedTo = %q, want a", bConnectedTo)
	}
	if aConnectedTo != "b" {
		t.Fatalf("aConnectedTo = %q, want b", aConnectedTo)
	}
}

func TestLoopbackStopNotifiesPeers(t *testing.T) {
	hub := NewLoopbackHub()

	disconnected := make(chan string, 1)
	a := hub.Join("a", Handlers{})
	b := hub.Join("b", Handlers{OnPeerDisconnected: func(peerID string) { disconnected <- peerID }})

	if err := a.Start(); err != nil {
		t.Fatalf("a.Start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("b.Start: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("a.Stop: %v", err)
	}

	select {
	case peerID := <-disconnected:
		if peerID != "a" {
			t.Fatalf("disconnected peer = %q, want a", peerID)
		}
	default:
		t.Fatalf("expected b to be notified of a's disconnect")
	}
}
