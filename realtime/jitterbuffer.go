// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package realtime implements the jitter buffer that reorders
// sequence-numbered audio frames for lossy real-time streams and
// synthesizes placeholder frames for gaps (§4.8).
package realtime

import (
	"sync"

	"github.com/google/btree"
)

// Config bounds a JitterBuffer's depth (§4.8).
type Config struct {
	// TargetDepth is the level IsReady compares against.
	TargetDepth int
	// MaxDepth bounds how many frames may be held at once.
	MaxDepth int
}

// DefaultConfig is the stock tuning for interactive traffic.
func DefaultConfig() Config {
	return Config{TargetDepth: 3, MaxDepth: 12}
}

// Entry is what Pop returns: the played frame, or a PLC placeholder.
type Entry struct {
	Seq           uint32
	Payload       []byte
	IsPLC         bool
	Reconstructed bool
}

// Stats tracks JitterBuffer lifetime counters; PLC+Played always equals
// the number of completed pops.
type Stats struct {
	Received         int
	Played           int
	PLC              int
	Reconstructed    int
	Dropped          int
	DuplicateDropped int
	Overflow         int
	Underrun         int
}

// JitterBuffer reorders frames by sequence number and conceals gaps.
// Not safe for concurrent use without external synchronization, except
// that its own exported methods each take an internal lock for their
// duration, since push and pop are commonly driven from separate
// transport-receive and playout goroutines.
type JitterBuffer struct {
	mu  sync.Mutex
	cfg Config

	entries map[uint32][]byte
	order   *btree.BTreeG[uint32]

	initialized bool
	nextPlaySeq uint32

	protector FECProtector
	stats     Stats
}

// New constructs a JitterBuffer. protector may be nil, in which case
// Pop falls back to plain packet-loss concealment with no FEC-assisted
// reconstruction.
func New(cfg Config, protector FECProtector) *JitterBuffer {
	less := func(a, b uint32) bool { return a < b }
	return &JitterBuffer{
		cfg:       cfg,
		entries:   make(map[uint32][]byte),
		order:     btree.NewG(32, less),
		protector: protector,
	}
}

// Push stores frame at seq: the first push sets next_play_seq; seq
// strictly before next_play_seq is dropped; duplicates are dropped;
// once the buffer reaches max depth the oldest frame is evicted and an
// overflow is counted.
func (j *JitterBuffer) Push(seq uint32, frame []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stats.Received++

	if !j.initialized {
		j.initialized = true
		j.nextPlaySeq = seq
	}
	if seq < j.nextPlaySeq {
		j.stats.Dropped++
		return
	}
	if _, exists := j.entries[seq]; exists {
		j.stats.DuplicateDropped++
		return
	}

	stored := append([]byte(nil), frame...)
	j.entries[seq] = stored
	j.order.ReplaceOrInsert(seq)

	if j.protector != nil {
		j.protector.AddShard(seq, stored)
	}

	if len(j.entries) >= j.cfg.MaxDepth {
		if oldest, ok := j.order.Min(); ok {
			delete(j.entries, oldest)
			j.order.Delete(oldest)
		}
		j.stats.Overflow++
	}
}

// Pop returns the entry at next_play_seq if present, synthesizing a PLC
// placeholder otherwise (or, with a protector configured and enough
// surviving shards, a reconstructed frame per §4.8a). Either way
// next_play_seq advances by one; a transition from non-empty to empty
// counts an underrun.
func (j *JitterBuffer) Pop() Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.nextPlaySeq
	lenBefore := len(j.entries)

	var entry Entry
	if payload, ok := j.entries[seq]; ok {
		entry = Entry{Seq: seq, Payload: payload}
		delete(j.entries, seq)
		j.order.Delete(seq)
		j.stats.Played++
	} else if j.protector != nil {
		if recovered, ok := j.protector.Reconstruct(seq); ok {
			entry = Entry{Seq: seq, Payload: recovered, Reconstructed: true}
			j.stats.Played++
			j.stats.Reconstructed++
		} else {
			entry = Entry{Seq: seq, IsPLC: true}
			j.stats.PLC++
		}
	} else {
		entry = Entry{Seq: seq, IsPLC: true}
		j.stats.PLC++
	}

	j.nextPlaySeq++
	if lenBefore > 0 && len(j.entries) == 0 {
		j.stats.Underrun++
	}
	return entry
}

// IsReady reports whether the current buffered depth is at least
// TargetDepth.
func (j *JitterBuffer) IsReady() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries) >= j.cfg.TargetDepth
}

// Stats returns a snapshot of lifetime counters.
func (j *JitterBuffer) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// Depth reports the number of frames currently buffered.
func (j *JitterBuffer) Depth() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Clear resets the buffer to its just-constructed state, preserving
// lifetime Stats.
func (j *JitterBuffer) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = make(map[uint32][]byte)
	j.order.Clear(false)
	j.initialized = false
	j.nextPlaySeq = 0
}
