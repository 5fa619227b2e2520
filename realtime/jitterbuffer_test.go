// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package realtime

import "testing"

func TestJitterBufferPLCScenario(t *testing.T) {
	jb := New(DefaultConfig(), nil)
	jb.Push(0, []byte{1})
	jb.Push(2, []byte{3})

	e1 := jb.Pop()
	if e1.Seq != 0 || e1.IsPLC || string(e1.Payload) != string([]byte{1}) {
		t.Fatalf("pop1 = %+v, want seq=0 frame=[1] is_plc=false", e1)
	}
	e2 := jb.Pop()
	if e2.Seq != 1 || !e2.IsPLC || e2.Payload != nil {
		t.Fatalf("pop2 = %+v, want seq=1 frame=nil is_plc=true", e2)
	}
	e3 := jb.Pop()
	if e3.Seq != 2 || e3.IsPLC || string(e3.Payload) != string([]byte{3}) {
		t.Fatalf("pop3 = %+v, want seq=2 frame=[3] is_plc=false", e3)
	}

	stats := jb.Stats()
	if stats.Played != 2 || stats.PLC != 1 {
		t.Fatalf("stats = %+v, want Played=2 PLC=1", stats)
	}
	if stats.Received != 2 {
		t.Fatalf("Received = %d, want 2", stats.Received)
	}
}

func TestJitterBufferDropsStaleAndDuplicateSeq(t *testing.T) {
	jb := New(DefaultConfig(), nil)
	jb.Push(5, []byte{1})
	_ = jb.Pop() // next_play_seq now 6

	jb.Push(3, []byte{2}) // strictly before next_play_seq, dropped
	jb.Push(6, []byte{3})
	jb.Push(6, []byte{4}) // duplicate, dropped

	stats := jb.Stats()
	if stats.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.DuplicateDropped != 1 {
		t.Fatalf("DuplicateDropped = %d, want 1", stats.DuplicateDropped)
	}
	if stats.Received != 4 {
		t.Fatalf("Received = %d, want 4", stats.Received)
	}

	e := jb.Pop()
	if e.Seq != 6 || e.IsPLC || string(e.Payload) != string([]byte{3}) {
		t.Fatalf("pop = %+v, want seq=6 frame=[3]", e)
	}
}

func TestJitterBufferOverflowEvictsOldest(t *testing.T) {
	cfg := Config{TargetDepth: 1, MaxDepth: 3}
	jb := New(cfg, nil)
	for seq := uint32(0); seq < 5; seq++ {
		jb.Push(seq, []byte{byte(seq)})
	}
	if jb.Depth() >= 5 {
		t.Fatalf("expected overflow eviction to cap depth, got %d", jb.Depth())
	}
	stats := jb.Stats()
	if stats.Overflow == 0 {
		t.Fatalf("expected at least one overflow to be counted")
	}
}

func TestJitterBufferIsReady(t *testing.T) {
	cfg := Config{TargetDepth: 2, MaxDepth: 10}
	jb := New(cfg, nil)
	if jb.IsReady() {
		t.Fatalf("empty buffer should not be ready")
	}
	jb.Push(0, []byte{1})
	if jb.IsReady() {
		t.Fatalf("buffer below target depth should not be ready")
	}
	jb.Push(1, []byte{2})
	if !jb.IsReady() {
		t.Fatalf("buffer at target depth should be ready")
	}
}

func TestJitterBufferUnderrunCountedOnTransitionToEmpty(t *testing.T) {
	jb := New(DefaultConfig(), nil)
	jb.Push(0, []byte{1})
	jb.Pop() // buffer transitions from depth 1 to depth 0

	stats := jb.Stats()
	if stats.Underrun != 1 {
		t.Fatalf("Underrun = %d, want 1", stats.Underrun)
	}
}

func TestJitterBufferPlayedPlusPLCEqualsTotalPops(t *testing.T) {
	jb := New(DefaultConfig(), nil)
	jb.Push(0, []byte{1})
	jb.Push(3, []byte{2})

	total := 0
	for i := 0; i < 4; i++ {
		jb.Pop()
		total++
	}
	stats := jb.Stats()
	if stats.Played+stats.PLC != total {
		t.Fatalf("played(%d)+plc(%d) != total pops(%d)", stats.Played, stats.PLC, total)
	}
}

func TestJitterBufferClearResetsState(t *testing.T) {
	jb := New(DefaultConfig(), nil)
	jb.Push(10, []byte{1})
	jb.Clear()

	jb.Push(0, []byte{9})
	e := jb.Pop()
	if e.Seq != 0 || e.IsPLC {
		t.Fatalf("after Clear, next push should reinitialize next_play_seq; got %+v", e)
	}
}

func TestJitterBufferWithFECFallsBackToPLCWithoutParity(t *testing.T) {
	protector, err := NewReedSolomonProtector(3, 2)
	if err != nil {
		t.Fatalf("NewReedSolomonProtector: %v", err)
	}
	jb := New(Config{TargetDepth: 1, MaxDepth: 10}, protector)

	frames := [][]byte{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
		{3, 3, 3, 3},
	}
	// Data shard 1 (seq=1) is "lost": never pushed. No parity shards
	// (seq 3, 4) are pushed either, so group 0 holds only 2 of the 3
	// shards reconstruction needs.
	jb.Push(0, frames[0])
	// seq 1 intentionally withheld to simulate loss
	jb.Push(2, frames[2])

	e0 := jb.Pop()
	if e0.IsPLC || string(e0.Payload) != string(frames[0]) {
		t.Fatalf("pop(seq0) = %+v, want frame %v", e0, frames[0])
	}

	// Without parity shards present, seq1 cannot be reconstructed: falls
	// back to PLC exactly like the no-protector case.
	e1 := jb.Pop()
	if !e1.IsPLC {
		t.Fatalf("pop(seq1) without enough shards should fall back to PLC, got %+v", e1)
	}
}
