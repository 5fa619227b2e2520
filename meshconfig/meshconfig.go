// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package meshconfig holds the YAML-driven tunables a host sets once at
// startup: timeouts, buffer depths, chunk sizes, concurrency caps.
package meshconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects every tunable a host sets once at startup. Zero-value
// Config is not valid — use Default() or Load().
type Config struct {
	// HandshakeTimeout bounds a single per-peer handshake attempt (§4.7).
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// TransferTimeout bounds a single file transfer (§4.9).
	TransferTimeout time.Duration `yaml:"transfer_timeout"`

	// JitterTargetDepth is the JitterBuffer's target_depth (§4.8).
	JitterTargetDepth int `yaml:"jitter_target_depth"`
	// JitterMaxDepth is the JitterBuffer's max_depth (§4.8).
	JitterMaxDepth int `yaml:"jitter_max_depth"`

	// FileChunkSize is the chunk size used by the file chunker (§4.9).
	FileChunkSize int `yaml:"file_chunk_size"`
	// MaxFileSize bounds a single file transfer's total size (§4.9).
	MaxFileSize int64 `yaml:"max_file_size"`

	// MaxConcurrentOutgoingTransfers and MaxConcurrentIncomingTransfers
	// bound FileManager's active transfer tables (§4.9).
	MaxConcurrentOutgoingTransfers int `yaml:"max_concurrent_outgoing_transfers"`
	MaxConcurrentIncomingTransfers int `yaml:"max_concurrent_incoming_transfers"`

	// LogLevel is one of meshlog's Level constants.
	LogLevel int `yaml:"log_level"`
}

// Default returns the stock tuning: 30s handshake timeout, 300s
// transfer timeout, jitter target depth 3, chunk size 4096.
func Default() Config {
	return Config{
		HandshakeTimeout:               30 * time.Second,
		TransferTimeout:                300 * time.Second,
		JitterTargetDepth:              3,
		JitterMaxDepth:                 12,
		FileChunkSize:                  4096,
		MaxFileSize:                    100 << 20, // 100 MiB
		MaxConcurrentOutgoingTransfers: 4,
		MaxConcurrentIncomingTransfers: 4,
		LogLevel:                       1, // meshlog.LevelError
	}
}

// Load reads a YAML config file, starting from Default() so a partial
// file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
