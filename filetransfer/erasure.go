// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package filetransfer

import (
	"errors"
	"fmt"
	"math"

	"github.com/xssnick/raptorq"
)

// ErrSymbolSizeExceeded is returned when a source chunk is larger than
// the coder's fixed symbol size.
var ErrSymbolSizeExceeded = errors.New("filetransfer: chunk exceeds erasure symbol size")

// CodedSymbol is one RaptorQ source or repair symbol, carrying its own
// encoding symbol ID explicitly rather than relying on slice position —
// a received symbol's index in a slice is not its ID once symbols
// arrive out of order or any are dropped in transit.
type CodedSymbol struct {
	ID   uint32
	Data []byte
}

// ErasureCoder erasure-codes one file transfer's chunk stream via
// RaptorQ, tracking each symbol's real ID through encode and decode.
type ErasureCoder struct {
	rq               raptorq.RaptorQ
	numSourceSymbols uint32
	symbolSize       uint16
}

// NewErasureCoder constructs a coder for numSourceSymbols chunks each no
// larger than symbolSize bytes.
func NewErasureCoder(numSourceSymbols int, symbolSize uint16) (*ErasureCoder, error) {
	if numSourceSymbols <= 0 {
		return nil, errors.New("filetransfer: numSourceSymbols must be positive")
	}
	if symbolSize == 0 {
		return nil, errors.New("filetransfer: symbolSize must be positive")
	}
	return &ErasureCoder{
		rq:               raptorq.NewRaptorQ(symbolSize),
		numSourceSymbols: uint32(numSourceSymbols),
		symbolSize:       symbolSize,
	}, nil
}

// RepairSymbolCount returns ceil(numSourceSymbols*redundancy), the
// number of extra repair symbols Encode emits alongside the source ones.
func (c *ErasureCoder) RepairSymbolCount(redundancy float64) int {
	return int(math.Ceil(float64(c.numSourceSymbols) * redundancy))
}

// Encode pads chunks to symbolSize, concatenates them into one RaptorQ
// source block, and returns every source symbol plus numRepair repair
// symbols, each carrying its real encoding symbol ID.
func (c *ErasureCoder) Encode(chunks [][]byte, numRepair int) ([]CodedSymbol, error) {
	if len(chunks) != int(c.numSourceSymbols) {
		return nil, fmt.Errorf("filetransfer: expected %d source chunks, got %d", c.numSourceSymbols, len(chunks))
	}
	payload := make([]byte, 0, int(c.numSourceSymbols)*int(c.symbolSize))
	for _, chunk := range chunks {
		if len(chunk) > int(c.symbolSize) {
			return nil, ErrSymbolSizeExceeded
		}
		padded := make([]byte, c.symbolSize)
		copy(padded, chunk)
		payload = append(payload, padded...)
	}

	enc, err := c.rq.CreateEncoder(payload)
	if err != nil {
		return nil, err
	}

	symbols := make([]CodedSymbol, 0, int(c.numSourceSymbols)+numRepair)
	for i := uint32(0); i < c.numSourceSymbols; i++ {
		symbols = append(symbols, CodedSymbol{ID: i, Data: enc.GenSymbol(i)})
	}
	for i := 0; i < numRepair; i++ {
		id := c.numSourceSymbols + uint32(i)
		symbols = append(symbols, CodedSymbol{ID: id, Data: enc.GenSymbol(id)})
	}
	return symbols, nil
}

// Decoder accumulates symbols for one incoming coded transfer. It keeps
// every received symbol's real ID, not its arrival order, so a fresh
// raptorq decoder fed from that recorded set always reproduces the same
// result regardless of arrival order or which symbols were lost in
// transit.
type Decoder struct {
	coder     *ErasureCoder
	received  []CodedSymbol
	seenIDs   map[uint32]bool
}

// NewDecoder starts a decode session for this coder's parameters.
func (c *ErasureCoder) NewDecoder() *Decoder {
	return &Decoder{coder: c, seenIDs: make(map[uint32]bool)}
}

// AddSymbol records one received symbol by its real ID (duplicates are
// ignored) and attempts a decode. It reports done and the reassembled
// chunks once enough symbols have arrived.
func (d *Decoder) AddSymbol(sym CodedSymbol) (done bool, chunks [][]byte, err error) {
	if d.seenIDs[sym.ID] {
		return false, nil, nil
	}
	d.seenIDs[sym.ID] = true
	d.received = append(d.received, sym)

	if len(d.received) < int(d.coder.numSourceSymbols) {
		return false, nil, nil
	}

	payloadLen := uint64(d.coder.numSourceSymbols) * uint64(d.coder.symbolSize)
	dec, err := d.coder.rq.CreateDecoder(payloadLen)
	if err != nil {
		return false, nil, err
	}

	var data []byte
	success := false
	for _, s := range d.received {
		canTry, addErr := dec.AddSymbol(s.ID, s.Data)
		if addErr != nil {
			continue
		}
		if !canTry {
			continue
		}
		ok, decoded, decErr := dec.Decode()
		if decErr != nil {
			return false, nil, decErr
		}
		if ok {
			success, data = true, decoded
			break
		}
	}
	if !success {
		return false, nil, nil
	}

	out := make([][]byte, d.coder.numSourceSymbols)
	for i := uint32(0); i < d.coder.numSourceSymbols; i++ {
		start := int(i) * int(d.coder.symbolSize)
		end := start + int(d.coder.symbolSize)
		if end > len(data) {
			return false, nil, errors.New("filetransfer: decoded payload shorter than expected")
		}
		out[i] = data[start:end]
	}
	return true, out, nil
}
