// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package transport

import "errors"

var (
	// ErrUnknownPeer is returned by Loopback.Send for a peer ID that
	// never Join'd the hub.
	ErrUnknownPeer = errors.New("transport: unknown peer")
	// ErrNotStarted is returned by Loopback.Send when either side has
	// not called Start.
	ErrNotStarted = errors.New("transport: transport not started")
)
