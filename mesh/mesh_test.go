// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package mesh

import (
	"testing"
	"time"

	"github.com/airmesh/meshcore/filetransfer"
	"github.com/airmesh/meshcore/identity"
	"github.com/airmesh/meshcore/transport"
)

func newTestMesh(t *testing.T, selfID string, cb Callbacks) *Mesh {
	t.Helper()
	km := identity.NewKeyManager(identity.Config{Storage: identity.NewMemStorage()})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return New(Config{
		SelfID:     selfID,
		KeyManager: km,
		FileTransfer: filetransfer.Config{
			ChunkSize:             4096,
			MaxFileSize:           1 << 20,
			MaxConcurrentOutgoing: 4,
			MaxConcurrentIncoming: 4,
		},
		Callbacks: cb,
	})
}

func wireUp(t *testing.T, a, b *Mesh) {
	t.Helper()
	hub := transport.NewLoopbackHub()
	ta := hub.Join(a.SelfID(), a.Handlers())
	tb := hub.Join(b.SelfID(), b.Handlers())
	a.AttachTransport(ta)
	b.AttachTransport(tb)
	if err := ta.Start(); err != nil {
		t.Fatalf("ta.Start: %v", err)
	}
	if err := tb.Start(); err != nil {
		t.Fatalf("tb.Start: %v", err)
	}
}

func TestMeshHandshakeAndMessageRoundTrip(t *testing.T) {
	aComplete := make(chan string, 1)
	bComplete := make(chan string, 1)
	received := make(chan string, 1)

	a := newTestMesh(t, "alice", Callbacks{
		OnHandshakeComplete: func(peerID, fp string) { aComplete <- fp },
	})
	b := newTestMesh(t, "bob", Callbacks{
		OnHandshakeComplete: func(peerID, fp string) { bComplete <- fp },
		OnMessage:           func(peerID string, plaintext []byte) { received <- string(plaintext) },
	})
	defer a.Close()
	defer b.Close()

	wireUp(t, a, b)

	if err := a.Initiate("bob"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	var fpA, fpB string
	select {
	case fpA = <-aComplete:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a's handshake completion")
	}
	select {
	case fpB = <-bComplete:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for b's handshake completion")
	}
	if fpA != fpB {
		t.Fatalf("fingerprints disagree: a=%q b=%q", fpA, fpB)
	}

	if err := a.SendMessage("bob", []byte("hello mesh")); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	select {
	case got := <-received:
		if got != "hello mesh" {
			t.Fatalf("got %q, want %q", got, "hello mesh")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message delivery")
	}
}

func TestMeshFileSendReceiveRoundTrip(t *testing.T) {
	fileReceived := make(chan []byte, 1)

	a := newTestMesh(t, "alice", Callbacks{})
	b := newTestMesh(t, "bob", Callbacks{
		OnFileReceived: func(transferID string, meta filetransfer.FileMeta, data []byte) {
			fileReceived <- data
		},
	})
	defer a.Close()
	defer b.Close()

	wireUp(t, a, b)

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	if _, err := a.SendFile("bob", data, filetransfer.FileMeta{Name: "f.bin"}, false); err != nil {
		t.Fatalf("SendFile: %v", err)
	}

	select {
	case got := <-fileReceived:
		if len(got) != len(data) {
			t.Fatalf("got %d bytes, want %d", len(got), len(data))
		}
		for i := range data {
			if got[i] != data[i] {
				t.Fatalf("byte %d mismatch", i)
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for file delivery")
	}
}

// TestMeshFileSendReceiveRoundTripCoded exercises the erasure-coded
// send path (§4.9a) end to end over the wire framing, not just the
// RaptorQ coder in isolation.
func TestMeshFileSendReceiveRoundTripCoded(t *testing.T) {
	fileReceived := make(chan []byte, 1)

	a := newTestMesh(t, "alice", Callbacks{})
	b := newTestMesh(t, "bob", Callbacks{
		OnFileReceived: func(transferID string, meta filetransfer.FileMeta, data []byte) {
			fileReceived <- data
		},
	})
	defer a.Close()
	defer b.Close()

	wireUp(t, a, b)

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	if _, err := a.SendFile("bob", data, filetransfer.FileMeta{Name: "f.bin"}, true); err != nil {
		t.Fatalf("SendFile: %v", err)
	}

	select {
	case got := <-fileReceived:
		if len(got) != len(data) {
			t.Fatalf("got %d bytes, want %d", len(got), len(data))
		}
		for i := range data {
			if got[i] != data[i] {
				t.Fatalf("byte %d mismatch", i)
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for coded file delivery")
	}
}

func TestMeshRealtimeFrameFeedsPeerJitterBuffer(t *testing.T) {
	a := newTestMesh(t, "alice", Callbacks{})
	b := newTestMesh(t, "bob", Callbacks{})
	defer a.Close()
	defer b.Close()

	wireUp(t, a, b)

	if err := a.SendRealtimeFrame("bob", 0, []byte("frame0")); err != nil {
		t.Fatalf("SendRealtimeFrame: %v", err)
	}

	jb := b.JitterBufferFor("alice")
	deadline := time.Now().Add(time.Second)
	for jb.Depth() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if depth := jb.Depth(); depth != 1 {
		t.Fatalf("Depth = %d, want 1", depth)
	}
	entry := jb.Pop()
	if entry.IsPLC || string(entry.Payload) != "frame0" {
		t.Fatalf("got %+v, want frame0 payload", entry)
	}
}

func TestMeshPeerDisconnectTearsDownSessionForThatPeer(t *testing.T) {
	aComplete := make(chan struct{}, 1)
	bComplete := make(chan struct{}, 1)
	a := newTestMesh(t, "alice", Callbacks{
		OnHandshakeComplete: func(string, string) { aComplete <- struct{}{} },
	})
	b := newTestMesh(t, "bob", Callbacks{
		OnHandshakeComplete: func(string, string) { bComplete <- struct{}{} },
	})
	defer a.Close()
	defer b.Close()

	wireUp(t, a, b)
	if err := a.Initiate("bob"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	select {
	case <-aComplete:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for alice's handshake completion")
	}
	select {
	case <-bComplete:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for bob's handshake completion")
	}

	if err := b.SendMessage("alice", []byte("x")); err != nil {
		t.Fatalf("SendMessage before disconnect: %v", err)
	}

	b.onPeerDisconnected("alice")

	if err := b.SendMessage("alice", []byte("y")); err == nil {
		t.Fatalf("expected SendMessage to fail after the session was torn down")
	}
}
