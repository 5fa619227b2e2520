// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package mesh is the top-level orchestrator (§10): it wires a
// handshake.Manager, a table of established session.Session channels, a
// filetransfer.FileManager, and per-peer realtime.JitterBuffers behind
// one API driven by a host-supplied transport.Transport.
package mesh

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/airmesh/meshcore/crypto"
	"github.com/airmesh/meshcore/filetransfer"
	"github.com/airmesh/meshcore/handshake"
	"github.com/airmesh/meshcore/identity"
	"github.com/airmesh/meshcore/mesherr"
	"github.com/airmesh/meshcore/meshlog"
	"github.com/airmesh/meshcore/noise"
	"github.com/airmesh/meshcore/realtime"
	"github.com/airmesh/meshcore/session"
	"github.com/airmesh/meshcore/transport"
)

// Wire type bytes used above the handshake layer's 1/2/3 (§4.7): 4-7 are
// this package's own application-level framing, not part of §6's
// wire formats, which only define handshake/session/file-offer/chunk
// payload shapes, not how a host multiplexes them over one Transport.
const (
	frameSessionData  byte = 4
	frameFileOffer    byte = 5
	frameFileChunk    byte = 6
	frameRealtimeData byte = 7
)

// Callbacks are the application-facing events Mesh fires.
type Callbacks struct {
	OnPeerConnected     func(peerID string)
	OnPeerDisconnected  func(peerID string)
	OnHandshakeComplete func(peerID string, fingerprint string)
	OnHandshakeFailed   func(peerID string, code mesherr.Code)
	OnMessage           func(peerID string, plaintext []byte)
	OnFileReceived      func(transferID string, meta filetransfer.FileMeta, data []byte)
	OnFileSendComplete  func(transferID string)
	OnFileFailed        func(transferID, direction string, code mesherr.Code)
}

// Config bundles Mesh construction parameters.
type Config struct {
	SelfID           string
	KeyManager       *identity.KeyManager
	HandshakeTimeout time.Duration
	FileTransfer     filetransfer.Config
	Jitter           realtime.Config
	Log              meshlog.Logger
	Callbacks        Callbacks
}

// Mesh is the top-level orchestrator. Its Session and per-peer
// JitterBuffer tables are touched from both the application goroutine
// and transport callback goroutines (§5), so it guards them with
// sync.RWMutex the same way the per-peer tables elsewhere in this
// module are guarded.
type Mesh struct {
	mu sync.RWMutex

	selfID    string
	km        *identity.KeyManager
	transport transport.Transport

	hs       *handshake.Manager
	ft       *filetransfer.FileManager
	peers    *identity.PeerDirectory
	sessions map[string]*session.Session
	jitter   map[string]*realtime.JitterBuffer
	jitterCfg realtime.Config

	log       meshlog.Logger
	callbacks Callbacks
}

// New constructs a Mesh. The returned value has no Transport attached
// yet — call Handlers to obtain the callback set a Transport needs at
// construction, then AttachTransport once it exists.
func New(cfg Config) *Mesh {
	if cfg.Log == nil {
		cfg.Log = meshlog.Discard
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = handshake.DefaultTimeout
	}
	if cfg.Jitter.MaxDepth == 0 {
		cfg.Jitter = realtime.DefaultConfig()
	}

	m := &Mesh{
		selfID:    cfg.SelfID,
		km:        cfg.KeyManager,
		peers:     identity.NewPeerDirectory(),
		sessions:  make(map[string]*session.Session),
		jitter:    make(map[string]*realtime.JitterBuffer),
		jitterCfg: cfg.Jitter,
		log:       cfg.Log,
		callbacks: cfg.Callbacks,
	}

	m.hs = handshake.NewManager(handshake.Config{
		StaticSK: [32]byte(cfg.KeyManager.PrivateKey()),
		StaticPK: [32]byte(cfg.KeyManager.PublicKey()),
		SelfID:   cfg.SelfID,
		Timeout:  cfg.HandshakeTimeout,
		Log:      cfg.Log,
		Callbacks: handshake.Callbacks{
			OnComplete: m.onHandshakeComplete,
			OnFailed:   m.onHandshakeFailed,
		},
	})

	ftCfg := cfg.FileTransfer
	ftCfg.Log = cfg.Log
	ftCfg.Callbacks = filetransfer.Callbacks{
		OnFileReceived: m.onFileReceived,
		OnSendComplete: m.onFileSendComplete,
		OnFailed:       m.onFileFailed,
	}
	m.ft = filetransfer.NewFileManager(ftCfg)

	return m
}

// Handlers returns the transport.Handlers a host binds its Transport to
// at construction time (e.g. hub.Join(selfID, mesh.Handlers())).
func (m *Mesh) Handlers() transport.Handlers {
	return transport.Handlers{
		OnMessage:          m.onMessage,
		OnPeerConnected:    m.onPeerConnected,
		OnPeerDisconnected: m.onPeerDisconnected,
	}
}

// AttachTransport stores the send-capable Transport used for outbound
// traffic. Must be called before Initiate/SendMessage/SendFile.
func (m *Mesh) AttachTransport(t transport.Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transport = t
}

// Close stops the handshake manager's background rate limiter.
func (m *Mesh) Close() {
	m.hs.Close()
}

// SelfID returns this node's own peer identifier, as given at construction.
func (m *Mesh) SelfID() string { return m.selfID }

// KeyManager returns the static identity this Mesh was constructed with.
func (m *Mesh) KeyManager() *identity.KeyManager { return m.km }

func (m *Mesh) onPeerConnected(peerID string) {
	if m.callbacks.OnPeerConnected != nil {
		m.callbacks.OnPeerConnected(peerID)
	}
}

func (m *Mesh) onPeerDisconnected(peerID string) {
	m.mu.Lock()
	delete(m.sessions, peerID)
	delete(m.jitter, peerID)
	m.mu.Unlock()
	m.hs.Cancel(peerID)
	if m.callbacks.OnPeerDisconnected != nil {
		m.callbacks.OnPeerDisconnected(peerID)
	}
}

// Initiate starts a handshake with peerID over the attached Transport.
func (m *Mesh) Initiate(peerID string) error {
	m.mu.RLock()
	t := m.transport
	m.mu.RUnlock()
	if t == nil {
		return mesherr.New(mesherr.InitFailed, "mesh.Initiate", nil)
	}
	_, err := m.hs.Initiate(peerID, t)
	return err
}

func (m *Mesh) onHandshakeComplete(peerID string, result noise.Result, role noise.Role, _ time.Duration) {
	sess := session.New(result, role)
	m.mu.Lock()
	m.sessions[peerID] = sess
	m.mu.Unlock()

	m.peers.Observe(peerID, crypto.PublicKey(result.RemoteStatic), 0)

	if m.callbacks.OnHandshakeComplete != nil {
		m.callbacks.OnHandshakeComplete(peerID, fingerprintOf(result))
	}
}

// PeerDirectory returns the directory of peers this Mesh has completed
// a handshake with, populated automatically as handshakes complete.
func (m *Mesh) PeerDirectory() *identity.PeerDirectory {
	return m.peers
}

func (m *Mesh) onHandshakeFailed(peerID string, code mesherr.Code, _ error) {
	if m.callbacks.OnHandshakeFailed != nil {
		m.callbacks.OnHandshakeFailed(peerID, code)
	}
}

// fingerprintOf derives a short display fingerprint from the transcript
// hash bound at Split, not the peer's static key, so a single number
// both sides compute identically is available for out-of-band
// verification (reading the same digits aloud, comparing QR codes).
func fingerprintOf(result noise.Result) string {
	const shownHexChars = 16
	return crypto.PublicKey(result.HandshakeHash).Hex()[:shownHexChars]
}

// SendMessage encrypts plaintext under peerID's established session and
// sends it as a session-data frame. Fails if no session is established.
func (m *Mesh) SendMessage(peerID string, plaintext []byte) error {
	m.mu.RLock()
	sess, ok := m.sessions[peerID]
	t := m.transport
	m.mu.RUnlock()
	if !ok {
		return mesherr.New(mesherr.HandshakeInvalidState, "mesh.SendMessage", nil)
	}
	if t == nil {
		return mesherr.New(mesherr.InitFailed, "mesh.SendMessage", nil)
	}

	sealed, err := sess.Encrypt(plaintext, nil)
	if err != nil {
		return err
	}
	return t.Send(peerID, append([]byte{frameSessionData}, sealed...))
}

// SendFile chunks data and sends a file offer followed by every chunk
// to peerID over the established session-less file-transfer channel
// (§4.9 framing is application-level JSON, not session-encrypted). When
// coded is true, the chunk stream is erasure-coded via RaptorQ (§4.9a)
// before it is sent.
func (m *Mesh) SendFile(peerID string, data []byte, meta filetransfer.FileMeta, coded bool) (string, error) {
	m.mu.RLock()
	t := m.transport
	m.mu.RUnlock()
	if t == nil {
		return "", mesherr.New(mesherr.InitFailed, "mesh.SendFile", nil)
	}

	id, offer, chunks, err := m.ft.PrepareSend(peerID, data, meta, coded)
	if err != nil {
		return "", err
	}

	chunkSize := 0
	if len(chunks) > 0 {
		chunkSize = len(chunks[0].Data)
	}
	offerJSON, err := json.Marshal(wireOffer{
		Type: "file:offer", ID: offer.ID, Name: offer.Name, MimeType: offer.MimeType,
		Size: offer.Size, TotalChunks: offer.TotalChunks, ChunkSize: chunkSize,
		Coded: offer.Coded, SourceChunks: offer.SourceChunks,
	})
	if err != nil {
		return "", err
	}
	if err := t.Send(peerID, append([]byte{frameFileOffer}, offerJSON...)); err != nil {
		return "", err
	}

	for _, c := range chunks {
		chunkJSON, err := json.Marshal(wireChunk{
			Type: "file:chunk", TransferID: id, Index: c.Index, TotalChunks: c.TotalChunks, Data: c.Data,
		})
		if err != nil {
			return "", err
		}
		if err := t.Send(peerID, append([]byte{frameFileChunk}, chunkJSON...)); err != nil {
			return "", err
		}
		if err := m.ft.MarkChunkSent(id, c.Index); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (m *Mesh) onFileReceived(transferID string, meta filetransfer.FileMeta, data []byte, _ time.Duration) {
	if m.callbacks.OnFileReceived != nil {
		m.callbacks.OnFileReceived(transferID, meta, data)
	}
}

func (m *Mesh) onFileSendComplete(transferID string, _ time.Duration) {
	if m.callbacks.OnFileSendComplete != nil {
		m.callbacks.OnFileSendComplete(transferID)
	}
}

func (m *Mesh) onFileFailed(transferID, direction string, code mesherr.Code) {
	if m.callbacks.OnFileFailed != nil {
		m.callbacks.OnFileFailed(transferID, direction, code)
	}
}

// JitterBufferFor returns peerID's realtime.JitterBuffer, creating one
// with the configured Jitter settings on first use.
func (m *Mesh) JitterBufferFor(peerID string) *realtime.JitterBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	jb, ok := m.jitter[peerID]
	if !ok {
		jb = realtime.New(m.jitterCfg, nil)
		m.jitter[peerID] = jb
	}
	return jb
}

// SendRealtimeFrame sends one sequence-numbered frame to peerID's
// JitterBuffer on the other side, unencrypted — the jitter buffer
// operates on plaintext audio frames per §4.8, upstream of any session
// framing.
func (m *Mesh) SendRealtimeFrame(peerID string, seq uint32, frame []byte) error {
	m.mu.RLock()
	t := m.transport
	m.mu.RUnlock()
	if t == nil {
		return mesherr.New(mesherr.InitFailed, "mesh.SendRealtimeFrame", nil)
	}
	out := make([]byte, 1+4+len(frame))
	out[0] = frameRealtimeData
	binary.BigEndian.PutUint32(out[1:5], seq)
	copy(out[5:], frame)
	return t.Send(peerID, out)
}

func (m *Mesh) onMessage(peerID string, raw []byte) {
	if len(raw) == 0 {
		return
	}
	msgType, payload := raw[0], raw[1:]

	switch msgType {
	case handshake.TypeHandshakeInit, handshake.TypeHandshakeResponse, handshake.TypeHandshakeFinal:
		m.mu.RLock()
		t := m.transport
		m.mu.RUnlock()
		if t == nil {
			return
		}
		if err := m.hs.OnIncoming(peerID, msgType, payload, t); err != nil {
			m.log.Warnf("handshake message from %s rejected: %v", peerID, err)
		}

	case frameSessionData:
		m.mu.RLock()
		sess, ok := m.sessions[peerID]
		m.mu.RUnlock()
		if !ok {
			m.log.Warnf("session frame from %s with no established session", peerID)
			return
		}
		plaintext, err := sess.Decrypt(payload, nil)
		if err != nil {
			m.log.Warnf("session frame from %s failed to decrypt: %v", peerID, err)
			return
		}
		if m.callbacks.OnMessage != nil {
			m.callbacks.OnMessage(peerID, plaintext)
		}

	case frameFileOffer:
		var w wireOffer
		if err := json.Unmarshal(payload, &w); err != nil {
			m.log.Warnf("malformed file offer from %s: %v", peerID, err)
			return
		}
		if _, err := m.ft.HandleOffer(filetransfer.Offer{
			ID: w.ID, Name: w.Name, MimeType: w.MimeType, TotalChunks: w.TotalChunks, Size: w.Size,
			Coded: w.Coded, SourceChunks: w.SourceChunks,
		}, peerID); err != nil {
			m.log.Warnf("rejected file offer from %s: %v", peerID, err)
		}

	case frameFileChunk:
		var w wireChunk
		if err := json.Unmarshal(payload, &w); err != nil {
			m.log.Warnf("malformed file chunk from %s: %v", peerID, err)
			return
		}
		if err := m.ft.HandleChunk(w.TransferID, w.Index, w.Data); err != nil {
			m.log.Warnf("rejected file chunk from %s: %v", peerID, err)
		}

	case frameRealtimeData:
		if len(payload) < 4 {
			return
		}
		seq := binary.BigEndian.Uint32(payload[:4])
		m.JitterBufferFor(peerID).Push(seq, payload[4:])

	default:
		m.log.Warnf("unrecognized frame type %d from %s", msgType, peerID)
	}
}

type wireOffer struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	TotalChunks  int    `json:"totalChunks"`
	ChunkSize    int    `json:"chunkSize"`
	Coded        bool   `json:"coded,omitempty"`
	SourceChunks int    `json:"sourceChunks,omitempty"`
}

type wireChunk struct {
	Type        string `json:"type"`
	TransferID  string `json:"transferId"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"totalChunks"`
	Data        []byte `json:"data"`
}
