// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package realtime

import (
	"sync"

	"github.com/klauspost/reedsolomon"
)

// FECProtector lets a JitterBuffer attempt to reconstruct a missing
// frame from surviving shards instead of falling back to PLC (§4.8a).
// AddShard feeds every pushed frame (data or parity) into its shard
// group; Reconstruct is tried once a pop would otherwise be a PLC.
type FECProtector interface {
	AddShard(seq uint32, frame []byte)
	Reconstruct(seq uint32) (frame []byte, ok bool)
}

// groupWindow bounds how many trailing shard groups a ReedSolomonProtector
// retains; older groups are evicted, since a real-time stream has no use
// for reconstructing frames far behind the current play position.
const groupWindow = 4

// ReedSolomonProtector packs sequence numbers into fixed-size groups of
// dataShards real frames followed by parityShards repair frames (the
// repair frames occupy the next parityShards sequence numbers
// immediately after each group's data frames — a sender emitting this
// protector's output reserves those seq slots for parity rather than
// additional payload). Built on reedsolomon, generalized from
// fixed-size packets to the variable-length frames a jitter buffer
// actually carries.
type ReedSolomonProtector struct {
	mu sync.Mutex

	dataShards   int
	parityShards int
	totalShards  int
	enc          reedsolomon.Encoder

	groups map[uint32]*shardGroup
	order  []uint32 // group indices in arrival order, for windowed eviction
}

type shardGroup struct {
	shards        [][]byte
	present       int
	reconstructed bool
}

// NewReedSolomonProtector constructs a protector with dataShards real
// frames and parityShards repair frames per group.
func NewReedSolomonProtector(dataShards, parityShards int) (*ReedSolomonProtector, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &ReedSolomonProtector{
		dataShards:   dataShards,
		parityShards: parityShards,
		totalShards:  dataShards + parityShards,
		enc:          enc,
		groups:       make(map[uint32]*shardGroup),
	}, nil
}

func (p *ReedSolomonProtector) groupFor(seq uint32) (groupIndex uint32, indexInGroup int) {
	total := uint32(p.totalShards)
	return seq / total, int(seq % total)
}

// AddShard records one shard (data or parity) of the group seq belongs
// to, evicting the oldest tracked group if this introduces a new one
// beyond groupWindow.
func (p *ReedSolomonProtector) AddShard(seq uint32, frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	groupIdx, idx := p.groupFor(seq)
	g, ok := p.groups[groupIdx]
	if !ok {
		g = &shardGroup{shards: make([][]byte, p.totalShards)}
		p.groups[groupIdx] = g
		p.order = append(p.order, groupIdx)
		if len(p.order) > groupWindow {
			evict := p.order[0]
			p.order = p.order[1:]
			delete(p.groups, evict)
		}
	}
	if g.shards[idx] == nil {
		g.shards[idx] = append([]byte(nil), frame...)
		g.present++
	}
}

// Reconstruct attempts to recover the data frame at seq from its
// group's surviving shards. It reports ok=false if the group is
// unknown, seq names a parity slot, or too few shards survive.
func (p *ReedSolomonProtector) Reconstruct(seq uint32) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	groupIdx, idx := p.groupFor(seq)
	if idx >= p.dataShards {
		return nil, false
	}
	g, ok := p.groups[groupIdx]
	if !ok || g.present < p.dataShards {
		return nil, false
	}

	maxLen := 0
	for _, s := range g.shards {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	padded := make([][]byte, p.totalShards)
	for i, s := range g.shards {
		if s == nil {
			continue
		}
		if len(s) == maxLen {
			padded[i] = s
			continue
		}
		buf := make([]byte, maxLen)
		copy(buf, s)
		padded[i] = buf
	}

	if err := p.enc.ReconstructData(padded); err != nil {
		return nil, false
	}
	if padded[idx] == nil {
		return nil, false
	}
	return padded[idx], true
}
