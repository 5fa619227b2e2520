// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package handshake

import (
	"time"

	"github.com/google/btree"

	"github.com/airmesh/meshcore/noise"
)

// pendingEntry is one peer's in-flight handshake attempt, owned
// exclusively by the Manager until it completes or fails.
type pendingEntry struct {
	peerID string
	role   noise.Role
	step   int
	core   *noise.HandshakeCore

	startedAt time.Time
	deadline  time.Time
	timer     *time.Timer

	waiter chan completionResult
}

type completionResult struct {
	result noise.Result
	err    error
}

// pendingTable stores one pendingEntry per peer ID, ordered by peer ID.
// Unlike a bare map, Ascend gives deterministic iteration for
// stats/diagnostics.
type pendingTable struct {
	tree *btree.BTreeG[*pendingEntry]
}

func newPendingTable() *pendingTable {
	less := func(a, b *pendingEntry) bool { return a.peerID < b.peerID }
	return &pendingTable{tree: btree.NewG(32, less)}
}

func (t *pendingTable) get(peerID string) (*pendingEntry, bool) {
	return t.tree.Get(&pendingEntry{peerID: peerID})
}

func (t *pendingTable) put(e *pendingEntry) {
	t.tree.ReplaceOrInsert(e)
}

func (t *pendingTable) delete(peerID string) {
	t.tree.Delete(&pendingEntry{peerID: peerID})
}

func (t *pendingTable) len() int {
	return t.tree.Len()
}

// ascend calls fn for every pending entry in peer-ID order; fn returning
// false stops iteration early.
func (t *pendingTable) ascend(fn func(*pendingEntry) bool) {
	t.tree.Ascend(func(e *pendingEntry) bool {
		return fn(e)
	})
}
