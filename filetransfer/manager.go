// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package filetransfer

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/airmesh/meshcore/mesherr"
	"github.com/airmesh/meshcore/meshlog"
)

// State is a transfer's lifecycle state (§3 Transfer types).
type State string

const (
	Pending     State = "pending"
	Transferring State = "transferring"
	Complete    State = "complete"
	Failed      State = "failed"
	Cancelled   State = "cancelled"
)

// DefaultTimeout is the per-transfer deadline (§5: "transfer default 300s").
const DefaultTimeout = 300 * time.Second

// DefaultRedundancy is the stock repair-symbol ratio for erasure-coded
// sends (§4.9a): 20% extra repair symbols on top of the source chunks.
const DefaultRedundancy = 0.2

// FileMeta is the small bit of offer metadata that travels with a
// transfer, separate from the chunk stream itself.
type FileMeta struct {
	Name     string
	MimeType string
}

// Offer is what a sender transmits before chunks follow, and what a
// receiver validates in HandleOffer.
type Offer struct {
	ID          string
	Name        string
	MimeType    string
	TotalChunks int
	Size        int64
	// Coded marks an erasure-coded transfer (§4.9a); HandleChunk routes
	// coded offers through the RaptorQ decoder instead of the assembler.
	Coded bool
	// SourceChunks is the pre-coding chunk count. Only meaningful when
	// Coded is set, in which case TotalChunks counts transmitted symbols
	// (source plus repair) instead.
	SourceChunks int
}

// Callbacks are the event slots FileManager fires; all are optional.
type Callbacks struct {
	OnSendProgress    func(transferID string, percent float64)
	OnSendComplete    func(transferID string, elapsed time.Duration)
	OnReceiveProgress func(transferID string, percent float64)
	OnFileReceived    func(transferID string, meta FileMeta, data []byte, elapsed time.Duration)
	OnCancelled       func(transferID string, direction string)
	OnFailed          func(transferID string, direction string, code mesherr.Code)
}

// Config bundles FileManager construction parameters.
type Config struct {
	ChunkSize             int
	MaxFileSize           int64
	MaxConcurrentOutgoing int
	MaxConcurrentIncoming int
	// Redundancy is the repair-symbol ratio used by coded sends (§4.9a),
	// defaulting to DefaultRedundancy when zero.
	Redundancy float64
	Timeout    time.Duration
	Log        meshlog.Logger
	Callbacks  Callbacks
}

type outgoingTransfer struct {
	id, peerID string
	meta       FileMeta
	chunks     []Chunk
	sentCount  int
	state      State
	startedAt  time.Time
	timer      *time.Timer
}

type incomingTransfer struct {
	id, senderID string
	meta         FileMeta
	coded        bool
	totalSize    int64
	expectedSyms int
	receivedSyms int
	assembler    *Assembler
	decoder      *Decoder
	state        State
	startedAt    time.Time
	timer        *time.Timer
}

// FileManager tracks outgoing and incoming file transfers (§4.9). Not
// safe for concurrent use without external synchronization, except that
// its own methods each hold the internal lock for their duration.
type FileManager struct {
	mu  sync.Mutex
	cfg Config

	outgoing map[string]*outgoingTransfer
	incoming map[string]*incomingTransfer
}

// NewFileManager constructs a FileManager. cfg.Timeout defaults to
// DefaultTimeout if unset.
func NewFileManager(cfg Config) *FileManager {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Redundancy == 0 {
		cfg.Redundancy = DefaultRedundancy
	}
	if cfg.Log == nil {
		cfg.Log = meshlog.Discard
	}
	return &FileManager{
		cfg:      cfg,
		outgoing: make(map[string]*outgoingTransfer),
		incoming: make(map[string]*incomingTransfer),
	}
}

func newTransferID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// PrepareSend chunks data and registers a new outgoing transfer, arming
// its timeout. Fails if the outgoing transfer cap is already reached or
// the data exceeds MaxFileSize. When coded is true, the chunk stream is
// erasure-coded via RaptorQ (§4.9a): the returned chunks carry
// numSourceChunks source symbols plus ceil(numSourceChunks*Redundancy)
// repair symbols, and the offer's TotalChunks counts transmitted symbols
// rather than source chunks (SourceChunks carries the original count).
func (m *FileManager) PrepareSend(peerID string, data []byte, meta FileMeta, coded bool) (string, Offer, []Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.outgoing) >= m.cfg.MaxConcurrentOutgoing {
		return "", Offer{}, nil, mesherr.New(mesherr.ValidationFailed, "filetransfer.PrepareSend", nil)
	}

	id := newTransferID()
	rawChunks, err := ChunkData(data, id, m.cfg.ChunkSize, m.cfg.MaxFileSize)
	if err != nil {
		return "", Offer{}, nil, mesherr.New(mesherr.MessageTooLarge, "filetransfer.PrepareSend", err)
	}

	chunks := rawChunks
	offer := Offer{
		ID:          id,
		Name:        meta.Name,
		MimeType:    meta.MimeType,
		TotalChunks: len(rawChunks),
		Size:        int64(len(data)),
	}

	if coded && len(rawChunks) > 0 {
		coder, err := NewErasureCoder(len(rawChunks), uint16(m.cfg.ChunkSize))
		if err != nil {
			return "", Offer{}, nil, mesherr.New(mesherr.InitFailed, "filetransfer.PrepareSend", err)
		}
		raw := make([][]byte, len(rawChunks))
		for i, c := range rawChunks {
			raw[i] = c.Data
		}
		numRepair := coder.RepairSymbolCount(m.cfg.Redundancy)
		symbols, err := coder.Encode(raw, numRepair)
		if err != nil {
			return "", Offer{}, nil, mesherr.New(mesherr.InitFailed, "filetransfer.PrepareSend", err)
		}
		chunks = make([]Chunk, len(symbols))
		for i, sym := range symbols {
			chunks[i] = Chunk{
				TransferID:  id,
				Index:       int(sym.ID),
				TotalChunks: len(symbols),
				Data:        sym.Data,
			}
		}
		offer.Coded = true
		offer.SourceChunks = len(rawChunks)
		offer.TotalChunks = len(symbols)
	}

	entry := &outgoingTransfer{
		id:        id,
		peerID:    peerID,
		meta:      meta,
		chunks:    chunks,
		state:     Pending,
		startedAt: time.Now(),
	}
	m.armOutgoingTimeout(entry)
	m.outgoing[id] = entry

	return id, offer, chunks, nil
}

// MarkChunkSent records that chunk index of transferID has been handed
// to the transport, emitting send_progress and, once every chunk has
// been sent, send_complete.
func (m *FileManager) MarkChunkSent(transferID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.outgoing[transferID]
	if !ok {
		return mesherr.New(mesherr.ValidationFailed, "filetransfer.MarkChunkSent", nil)
	}
	entry.state = Transferring
	entry.sentCount++

	percent := 100 * float64(entry.sentCount) / float64(len(entry.chunks))
	if m.cfg.Callbacks.OnSendProgress != nil {
		m.cfg.Callbacks.OnSendProgress(transferID, percent)
	}

	if entry.sentCount >= len(entry.chunks) {
		entry.state = Complete
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(m.outgoing, transferID)
		elapsed := time.Since(entry.startedAt)
		if m.cfg.Callbacks.OnSendComplete != nil {
			m.cfg.Callbacks.OnSendComplete(transferID, elapsed)
		}
	}
	return nil
}

// HandleOffer validates an incoming offer and registers an Assembler
// for it, arming its timeout. Fails on a malformed offer or if the
// incoming transfer cap is already reached.
func (m *FileManager) HandleOffer(offer Offer, senderID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offer.ID == "" || offer.Name == "" || offer.TotalChunks <= 0 || offer.Size <= 0 || offer.Size > m.cfg.MaxFileSize {
		return "", mesherr.New(mesherr.MessageInvalidFormat, "filetransfer.HandleOffer", nil)
	}
	if offer.Coded && offer.SourceChunks <= 0 {
		return "", mesherr.New(mesherr.MessageInvalidFormat, "filetransfer.HandleOffer", nil)
	}
	if len(m.incoming) >= m.cfg.MaxConcurrentIncoming {
		return "", mesherr.New(mesherr.ValidationFailed, "filetransfer.HandleOffer", nil)
	}

	entry := &incomingTransfer{
		id:           offer.ID,
		senderID:     senderID,
		meta:         FileMeta{Name: offer.Name, MimeType: offer.MimeType},
		coded:        offer.Coded,
		totalSize:    offer.Size,
		expectedSyms: offer.TotalChunks,
		state:        Pending,
		startedAt:    time.Now(),
	}
	if offer.Coded {
		coder, err := NewErasureCoder(offer.SourceChunks, uint16(m.cfg.ChunkSize))
		if err != nil {
			return "", mesherr.New(mesherr.InitFailed, "filetransfer.HandleOffer", err)
		}
		entry.decoder = coder.NewDecoder()
	} else {
		entry.assembler = NewAssembler(offer.ID, offer.TotalChunks, offer.Size)
	}
	m.armIncomingTimeout(entry)
	m.incoming[offer.ID] = entry

	return offer.ID, nil
}

// HandleChunk forwards data to transferID's Assembler (or, for a coded
// transfer, its RaptorQ Decoder), emitting receive_progress, and on
// completion file_received. A duplicate or out-of-range chunk is a
// silent no-op, matching the assembler's idempotent AddChunk contract;
// a duplicate coded symbol is likewise ignored by the Decoder.
func (m *FileManager) HandleChunk(transferID string, index int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.incoming[transferID]
	if !ok {
		return mesherr.New(mesherr.ValidationFailed, "filetransfer.HandleChunk", nil)
	}
	entry.state = Transferring

	if entry.coded {
		return m.handleCodedChunk(entry, transferID, index, data)
	}

	if !entry.assembler.AddChunk(index, data) {
		return nil
	}

	percent := 100 * float64(entry.assembler.ReceivedChunks()) / float64(entry.assembler.TotalChunks)
	if m.cfg.Callbacks.OnReceiveProgress != nil {
		m.cfg.Callbacks.OnReceiveProgress(transferID, percent)
	}

	if !entry.assembler.IsComplete() {
		return nil
	}

	full, err := entry.assembler.Assemble()
	if err != nil {
		return mesherr.New(mesherr.ValidationFailed, "filetransfer.HandleChunk", err)
	}
	m.completeIncomingLocked(entry, transferID, full)
	return nil
}

func (m *FileManager) handleCodedChunk(entry *incomingTransfer, transferID string, index int, data []byte) error {
	if entry.decoder.seenIDs[uint32(index)] {
		return nil
	}
	done, chunks, err := entry.decoder.AddSymbol(CodedSymbol{ID: uint32(index), Data: data})
	if err != nil {
		return mesherr.New(mesherr.ValidationFailed, "filetransfer.HandleChunk", err)
	}

	entry.receivedSyms++
	if entry.expectedSyms > 0 {
		percent := 100 * float64(entry.receivedSyms) / float64(entry.expectedSyms)
		if m.cfg.Callbacks.OnReceiveProgress != nil {
			m.cfg.Callbacks.OnReceiveProgress(transferID, percent)
		}
	}

	if !done {
		return nil
	}

	full := make([]byte, 0, entry.totalSize)
	for _, c := range chunks {
		full = append(full, c...)
	}
	if int64(len(full)) > entry.totalSize {
		full = full[:entry.totalSize]
	}
	m.completeIncomingLocked(entry, transferID, full)
	return nil
}

func (m *FileManager) completeIncomingLocked(entry *incomingTransfer, transferID string, full []byte) {
	entry.state = Complete
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(m.incoming, transferID)

	elapsed := time.Since(entry.startedAt)
	if m.cfg.Callbacks.OnFileReceived != nil {
		m.cfg.Callbacks.OnFileReceived(transferID, entry.meta, full, elapsed)
	}
}

// CancelTransfer clears the timer and marks id cancelled in whichever
// direction (outgoing or incoming) it is found in. Idempotent: canceling
// an unknown id is a no-op.
func (m *FileManager) CancelTransfer(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.outgoing[id]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.state = Cancelled
		delete(m.outgoing, id)
		if m.cfg.Callbacks.OnCancelled != nil {
			m.cfg.Callbacks.OnCancelled(id, "outgoing")
		}
		return
	}
	if entry, ok := m.incoming[id]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.state = Cancelled
		delete(m.incoming, id)
		if m.cfg.Callbacks.OnCancelled != nil {
			m.cfg.Callbacks.OnCancelled(id, "incoming")
		}
		return
	}
}

func (m *FileManager) armOutgoingTimeout(entry *outgoingTransfer) {
	entry.timer = time.AfterFunc(m.cfg.Timeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if current, ok := m.outgoing[entry.id]; !ok || current != entry {
			return
		}
		delete(m.outgoing, entry.id)
		if m.cfg.Callbacks.OnFailed != nil {
			m.cfg.Callbacks.OnFailed(entry.id, "outgoing", mesherr.TransferTimeout)
		}
	})
}

func (m *FileManager) armIncomingTimeout(entry *incomingTransfer) {
	entry.timer = time.AfterFunc(m.cfg.Timeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if current, ok := m.incoming[entry.id]; !ok || current != entry {
			return
		}
		delete(m.incoming, entry.id)
		if m.cfg.Callbacks.OnFailed != nil {
			m.cfg.Callbacks.OnFailed(entry.id, "incoming", mesherr.TransferTimeout)
		}
	})
}
