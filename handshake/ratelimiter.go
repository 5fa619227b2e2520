// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package handshake

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/airmesh/meshcore/crypto"
)

const (
	handshakesPerSecond = 20
	handshakeBurst      = 5
	garbageCollectAfter = 10 * time.Second
)

// peerRateLimiter gates incoming HANDSHAKE_INIT messages per remote peer
// identity, so one noisy or hostile peer cannot exhaust CPU with bogus
// handshake attempts. A golang.org/x/time/rate token bucket per peer,
// keyed by static public key rather than network address since mesh
// peers are addressed by identity.
type peerRateLimiter struct {
	mu      sync.Mutex
	entries map[crypto.PublicKey]*rateLimiterEntry
	stop    chan struct{}
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newPeerRateLimiter starts the limiter and its background garbage
// collector. Callers must call Close when done to stop the goroutine.
func newPeerRateLimiter() *peerRateLimiter {
	rl := &peerRateLimiter{
		entries: make(map[crypto.PublicKey]*rateLimiterEntry),
		stop:    make(chan struct{}),
	}
	go rl.collectGarbage()
	return rl
}

func (rl *peerRateLimiter) collectGarbage() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				if now.Sub(entry.lastSeen) > garbageCollectAfter {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow reports whether an incoming handshake attempt from peer should be
// processed, consuming one token from that peer's bucket if so.
func (rl *peerRateLimiter) Allow(peer crypto.PublicKey) bool {
	rl.mu.Lock()
	entry, ok := rl.entries[peer]
	if !ok {
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(handshakesPerSecond), handshakeBurst),
		}
		rl.entries[peer] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Close stops the garbage-collection goroutine.
func (rl *peerRateLimiter) Close() {
	close(rl.stop)
}
