// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package identity

import (
	"testing"

	"github.com/airmesh/meshcore/mesherr"
)

func TestKeyManagerLoadGeneratesWhenAbsent(t *testing.T) {
	store := NewMemStorage()
	km := NewKeyManager(Config{Storage: store})

	if err := km.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if km.PublicKey().IsZero() {
		t.Fatalf("expected a freshly generated non-zero public key")
	}
	if ok, _ := store.Has(DefaultStorageKey); !ok {
		t.Fatalf("expected Load to persist the generated identity")
	}
}

func TestKeyManagerLoadRestoresPersistedIdentity(t *testing.T) {
	store := NewMemStorage()
	first := NewKeyManager(Config{Storage: store})
	if err := first.Generate("alice"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wantPK := first.PublicKey()
	wantSK := first.PrivateKey()

	second := NewKeyManager(Config{Storage: store})
	if err := second.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second.PublicKey() != wantPK {
		t.Fatalf("restored public key does not match persisted one")
	}
	if second.PrivateKey() != wantSK {
		t.Fatalf("restored private key does not match persisted one")
	}
	if second.DisplayName() != "alice" {
		t.Fatalf("DisplayName = %q, want alice", second.DisplayName())
	}
}

func TestKeyManagerLoadRejectsCorruptRecord(t *testing.T) {
	store := NewMemStorage()
	if err := store.Set(DefaultStorageKey, `{"keyPair":{"publicKey":"AA==","secretKey":"AA=="}}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	km := NewKeyManager(Config{Storage: store})
	err := km.Load()
	if err == nil {
		t.Fatalf("expected Load to reject an undersized key pair")
	}
	if code, ok := mesherr.CodeOf(err); !ok || code != mesherr.InvalidKey {
		t.Fatalf("got code %v (ok=%v), want InvalidKey", code, ok)
	}
}

func TestKeyManagerGenerateProducesDistinctKeys(t *testing.T) {
	km := NewKeyManager(Config{Storage: NewMemStorage()})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first := km.PublicKey()
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if km.PublicKey() == first {
		t.Fatalf("expected regeneration to produce a different key pair")
	}
}

func TestKeyManagerFingerprintIsStableAndShort(t *testing.T) {
	km := NewKeyManager(Config{Storage: NewMemStorage()})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fp1 := km.Fingerprint()
	fp2 := km.Fingerprint()
	if fp1 != fp2 {
		t.Fatalf("Fingerprint is not stable across calls: %q != %q", fp1, fp2)
	}
	if len(fp1) != 16 {
		t.Fatalf("Fingerprint length = %d, want 16", len(fp1))
	}
}

func TestKeyManagerSetDisplayNamePersists(t *testing.T) {
	store := NewMemStorage()
	km := NewKeyManager(Config{Storage: store})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := km.SetDisplayName("bob"); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}

	reloaded := NewKeyManager(Config{Storage: store})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.DisplayName() != "bob" {
		t.Fatalf("DisplayName = %q, want bob", reloaded.DisplayName())
	}
}

func TestKeyManagerCloseZeroesSecretKey(t *testing.T) {
	km := NewKeyManager(Config{Storage: NewMemStorage()})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if km.PrivateKey().IsZero() {
		t.Fatalf("expected a non-zero private key before Close")
	}
	km.Close()
	if !km.PrivateKey().IsZero() {
		t.Fatalf("expected Close to zero the private key")
	}
}

func TestKeyManagerUsesCustomStorageKey(t *testing.T) {
	store := NewMemStorage()
	km := NewKeyManager(Config{Storage: store, StorageKey: "other"})
	if err := km.Generate(""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ok, _ := store.Has(DefaultStorageKey); ok {
		t.Fatalf("expected the default key to be untouched")
	}
	if ok, _ := store.Has("other"); !ok {
		t.Fatalf("expected the identity to be persisted under the custom key")
	}
}
