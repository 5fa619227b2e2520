// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Command meshid exercises identity.KeyManager against a real
// filesystem-backed identity.FileStorage, in the spirit of the
// teacher's key-generation CLI conventions (base64/hex key display).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airmesh/meshcore/identity"
)

const exitFailure = 1

func printUsage() {
	fmt.Printf("usage:\n")
	fmt.Printf("  %s generate [display-name]\n", os.Args[0])
	fmt.Printf("  %s show\n", os.Args[0])
}

func defaultStateDir() (string, error) {
	if dir := os.Getenv("MESHID_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".meshid"), nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitFailure)
	}

	stateDir, err := defaultStateDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshid: %v\n", err)
		os.Exit(exitFailure)
	}
	storage, err := identity.NewFileStorage(stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshid: %v\n", err)
		os.Exit(exitFailure)
	}
	km := identity.NewKeyManager(identity.Config{Storage: storage})

	switch os.Args[1] {
	case "generate":
		displayName := ""
		if len(os.Args) > 2 {
			displayName = os.Args[2]
		}
		if err := km.Generate(displayName); err != nil {
			fmt.Fprintf(os.Stderr, "meshid: generate: %v\n", err)
			os.Exit(exitFailure)
		}
		printIdentity(km)

	case "show":
		if err := km.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "meshid: show: %v\n", err)
			os.Exit(exitFailure)
		}
		printIdentity(km)

	default:
		printUsage()
		os.Exit(exitFailure)
	}
}

func printIdentity(km *identity.KeyManager) {
	pk := km.PublicKey()
	fmt.Printf("Public Key:  %s\n", pk.Base64())
	fmt.Printf("Fingerprint: %s\n", km.Fingerprint())
	if name := km.DisplayName(); name != "" {
		fmt.Printf("Display Name: %s\n", name)
	}
	fmt.Printf("Created At:  %s\n", km.CreatedAt().UTC().Format("2006-01-02T15:04:05Z"))
}
