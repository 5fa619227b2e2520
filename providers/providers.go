// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package providers reports platform cryptographic capabilities and lets
// a host register an alternative crypto.Suite in place of the from-scratch
// reference implementation (§9 "provider injection").
package providers

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/airmesh/meshcore/crypto"
)

// Capabilities summarizes CPU features relevant to deciding whether a
// hardware-accelerated crypto.Suite is worth substituting for the
// reference one.
type Capabilities struct {
	HasAES    bool
	HasAVX2   bool
	HasSSE41  bool
	BrandName string
}

// Detect reports the current process's CPU capabilities.
func Detect() Capabilities {
	return Capabilities{
		HasAES:    cpuid.CPU.Has(cpuid.AESNI),
		HasAVX2:   cpuid.CPU.Has(cpuid.AVX2),
		HasSSE41:  cpuid.CPU.Has(cpuid.SSE41),
		BrandName: cpuid.CPU.BrandName,
	}
}

// RecommendReferenceSuite reports whether the from-scratch reference
// crypto.Suite is an adequate choice for this platform, versus a host
// wanting to supply a hardware-accelerated alternative. The reference
// suite has no hardware acceleration, so this is "true" unless the
// platform specifically exposes AES-NI, where a wired AES-GCM-based
// alternative would usually outperform it — a recommendation, not a
// requirement; DefaultSuite always remains available.
func RecommendReferenceSuite(caps Capabilities) bool {
	return !caps.HasAES
}

// Registry lets a host swap in an alternative crypto.Suite at process
// start. No package in this module reads a Registry itself; components
// take their Suite as an explicit argument.
type Registry struct {
	suite crypto.Suite
}

// NewRegistry returns a Registry defaulting to crypto.DefaultSuite().
func NewRegistry() *Registry {
	return &Registry{suite: crypto.DefaultSuite()}
}

// Register installs an alternative Suite.
func (r *Registry) Register(suite crypto.Suite) {
	r.suite = suite
}

// Suite returns the currently registered Suite.
func (r *Registry) Suite() crypto.Suite {
	return r.suite
}
