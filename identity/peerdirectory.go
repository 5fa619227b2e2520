// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package identity

import (
	"sync"
	"time"

	"github.com/airmesh/meshcore/crypto"
)

// PeerRecord is a passive memory of a peer the transport has reported
// seeing: its public key, when it was last seen, and an opaque
// transport-supplied signal-quality hint (e.g. BLE RSSI). It implements
// no discovery of its own — it holds only what callers pass to Observe
// (mesh.Mesh does so when a handshake with the peer completes).
type PeerRecord struct {
	PeerID       string
	PublicKey    crypto.PublicKey
	LastSeen     time.Time
	SignalHint   int8
	DisplayName  string
}

// PeerDirectory is a concurrency-safe table of PeerRecords, keyed by
// peer ID.
type PeerDirectory struct {
	mu   sync.RWMutex
	seen map[string]PeerRecord
}

// NewPeerDirectory returns an empty PeerDirectory.
func NewPeerDirectory() *PeerDirectory {
	return &PeerDirectory{seen: make(map[string]PeerRecord)}
}

// Observe records (or updates) a peer sighting.
func (d *PeerDirectory) Observe(peerID string, pk crypto.PublicKey, signalHint int8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.seen[peerID]
	rec.PeerID = peerID
	rec.PublicKey = pk
	rec.SignalHint = signalHint
	rec.LastSeen = time.Now()
	d.seen[peerID] = rec
}

// SetDisplayName attaches a human-readable label to a known peer, a
// no-op if the peer has never been observed.
func (d *PeerDirectory) SetDisplayName(peerID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.seen[peerID]
	if !ok {
		return
	}
	rec.DisplayName = name
	d.seen[peerID] = rec
}

// Lookup returns the recorded sighting for a peer, if any.
func (d *PeerDirectory) Lookup(peerID string) (PeerRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.seen[peerID]
	return rec, ok
}

// Forget removes a peer's recorded sighting.
func (d *PeerDirectory) Forget(peerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, peerID)
}

// All returns a snapshot of every recorded sighting.
func (d *PeerDirectory) All() []PeerRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]PeerRecord, 0, len(d.seen))
	for _, rec := range d.seen {
		out = append(out, rec)
	}
	return out
}
