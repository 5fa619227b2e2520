// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package identity

import (
	"testing"

	"github.com/airmesh/meshcore/crypto"
)

func TestPeerDirectoryObserveAndLookup(t *testing.T) {
	d := NewPeerDirectory()
	if _, ok := d.Lookup("p1"); ok {
		t.Fatalf("expected unseen peer to be absent")
	}

	var pk crypto.PublicKey
	pk[0] = 0x11
	d.Observe("p1", pk, -42)

	rec, ok := d.Lookup("p1")
	if !ok {
		t.Fatalf("expected p1 to be present after Observe")
	}
	if rec.PublicKey != pk || rec.SignalHint != -42 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPeerDirectorySetDisplayNameIsNoOpForUnknownPeer(t *testing.T) {
	d := NewPeerDirectory()
	d.SetDisplayName("ghost", "nobody")
	if _, ok := d.Lookup("ghost"); ok {
		t.Fatalf("expected SetDisplayName not to create a record for an unseen peer")
	}
}

func TestPeerDirectorySetDisplayNameUpdatesKnownPeer(t *testing.T) {
	d := NewPeerDirectory()
	d.Observe("p1", crypto.PublicKey{}, 0)
	d.SetDisplayName("p1", "alice")

	rec, ok := d.Lookup("p1")
	if !ok || rec.DisplayName != "alice" {
		t.Fatalf("got %+v (ok=%v), want DisplayName=alice", rec, ok)
	}
}

func TestPeerDirectoryForgetRemovesRecord(t *testing.T) {
	d := NewPeerDirectory()
	d.Observe("p1", crypto.PublicKey{}, 0)
	d.Forget("p1")
	if _, ok := d.Lookup("p1"); ok {
		t.Fatalf("expected p1 to be gone after Forget")
	}
}

func TestPeerDirectoryAllReturnsSnapshot(t *testing.T) {
	d := NewPeerDirectory()
	d.Observe("p1", crypto.PublicKey{}, 1)
	d.Observe("p2", crypto.PublicKey{}, 2)

	all := d.All()
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2", len(all))
	}
}
