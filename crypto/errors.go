// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

package crypto

import "errors"

// ErrAuthenticationFailed is returned by Decrypt on tag mismatch. It is
// deliberately uninformative beyond "authentication failed": the core
// never leaks why a tag failed to verify.
var ErrAuthenticationFailed = errors.New("crypto: authentication failed")

// ErrInvalidInput is returned for malformed input — wrong key/nonce
// size, truncated ciphertext — distinct from ErrAuthenticationFailed so
// callers can tell a programming error from a possible attack.
var ErrInvalidInput = errors.New("crypto: invalid input")
