// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package identity

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/airmesh/meshcore/crypto"
	"github.com/airmesh/meshcore/mesherr"
)

// DefaultStorageKey is the Storage key the identity record is persisted
// under (§6).
const DefaultStorageKey = "mesh_identity"

type keyPairRecord struct {
	PublicKey []byte `json:"publicKey"`
	SecretKey []byte `json:"secretKey"`
}

// record is the on-disk JSON shape (§6): a key pair plus an
// optional display name and a creation timestamp, in Unix seconds.
type record struct {
	KeyPair     keyPairRecord `json:"keyPair"`
	DisplayName string        `json:"displayName,omitempty"`
	CreatedAt   int64         `json:"createdAt"`
}

// Config configures a KeyManager.
type Config struct {
	Storage    Storage
	StorageKey string // defaults to DefaultStorageKey
	Suite      crypto.Suite
}

// KeyManager owns the node's static identity: its X25519 key pair, an
// optional human-readable display name, and the persisted record's
// creation time. It is process-wide state, read by the handshake layer
// to sign into a Noise session but never mutated mid-handshake (§6,
// "Shared resource policy").
//
// Consumers receive copies of the public key; the secret key leaves the
// manager only as a copy returned by PrivateKey (for the handshake
// layer) and in the serialized record written to Storage.
type KeyManager struct {
	mu sync.RWMutex

	storage    Storage
	storageKey string
	suite      crypto.Suite

	sk          crypto.PrivateKey
	pk          crypto.PublicKey
	displayName string
	createdAt   time.Time
	loaded      bool
}

// NewKeyManager constructs a KeyManager against the given Storage. Load
// or Generate must be called before PublicKey/Fingerprint are
// meaningful.
func NewKeyManager(cfg Config) *KeyManager {
	key := cfg.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}
	suite := cfg.Suite
	if suite == nil {
		suite = crypto.DefaultSuite()
	}
	return &KeyManager{storage: cfg.Storage, storageKey: key, suite: suite}
}

// Load reads the identity record from storage. If none exists, it
// generates a fresh key pair and persists it, so a first run always
// leaves a KeyManager ready to use.
func (k *KeyManager) Load() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	raw, found, err := k.storage.Get(k.storageKey)
	if err != nil {
		return mesherr.New(mesherr.InitFailed, "identity.Load", err)
	}
	if !found {
		return k.generateLocked("")
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return mesherr.New(mesherr.InvalidConfig, "identity.Load", err)
	}
	if len(rec.KeyPair.SecretKey) != crypto.X25519KeySize || len(rec.KeyPair.PublicKey) != crypto.X25519KeySize {
		return mesherr.New(mesherr.InvalidKey, "identity.Load", nil)
	}

	var sk crypto.PrivateKey
	var pk crypto.PublicKey
	copy(sk[:], rec.KeyPair.SecretKey)
	copy(pk[:], rec.KeyPair.PublicKey)

	k.zeroLocked()
	k.sk, k.pk = sk, pk
	k.displayName = rec.DisplayName
	k.createdAt = time.Unix(rec.CreatedAt, 0)
	k.loaded = true
	return nil
}

// Generate replaces the current identity with a freshly generated key
// pair and persists it, zeroing the previous secret key's storage
// in-place before it is discarded.
func (k *KeyManager) Generate(displayName string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.generateLocked(displayName)
}

func (k *KeyManager) generateLocked(displayName string) error {
	sk, pk, err := k.suite.GenerateKeyPair()
	if err != nil {
		return mesherr.New(mesherr.InitFailed, "identity.Generate", err)
	}

	k.zeroLocked()
	k.sk = crypto.PrivateKey(sk)
	k.pk = crypto.PublicKey(pk)
	k.displayName = displayName
	k.createdAt = time.Now()
	k.loaded = true
	return k.saveLocked()
}

// Save persists the current identity to storage under StorageKey.
func (k *KeyManager) Save() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.saveLocked()
}

func (k *KeyManager) saveLocked() error {
	rec := record{
		KeyPair: keyPairRecord{
			PublicKey: append([]byte(nil), k.pk[:]...),
			SecretKey: append([]byte(nil), k.sk[:]...),
		},
		DisplayName: k.displayName,
		CreatedAt:   k.createdAt.Unix(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return mesherr.New(mesherr.InitFailed, "identity.Save", err)
	}
	if err := k.storage.Set(k.storageKey, string(raw)); err != nil {
		return mesherr.New(mesherr.InitFailed, "identity.Save", err)
	}
	return nil
}

// PublicKey returns a copy of the static public key.
func (k *KeyManager) PublicKey() crypto.PublicKey {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pk
}

// PrivateKey returns a copy of the static secret key, for use by the
// handshake layer only. Callers must not retain it past the handshake.
func (k *KeyManager) PrivateKey() crypto.PrivateKey {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.sk
}

// DisplayName returns the identity's human-readable label, if any.
func (k *KeyManager) DisplayName() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.displayName
}

// SetDisplayName updates and persists the identity's label.
func (k *KeyManager) SetDisplayName(name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.displayName = name
	return k.saveLocked()
}

// CreatedAt returns when the current identity was generated.
func (k *KeyManager) CreatedAt() time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.createdAt
}

// Fingerprint returns a short hex digest of the public key, suitable
// for display or logging — SHA-256 of the raw key, truncated to 16
// hex characters (64 bits), which is plenty to disambiguate peers in a
// UI without printing the full key.
func (k *KeyManager) Fingerprint() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	sum := k.suite.Hash(k.pk[:])
	const shown = 8 // bytes -> 16 hex chars
	return crypto.PublicKey(sum).Hex()[:shown*2]
}

// Close zeroes the in-memory secret key. The KeyManager must not be
// used afterward.
func (k *KeyManager) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.zeroLocked()
	k.loaded = false
}

func (k *KeyManager) zeroLocked() {
	k.sk.Zero()
}
