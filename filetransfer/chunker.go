// SPDX-License-Identifier: MIT
//
// Copyright (C) 2026 The Meshcore Authors.

// Package filetransfer implements the chunked file transfer pipeline
// (§4.9): splitting a buffer into fixed-size chunks, reassembling them
// out of order on the receiving side, and tracking per-transfer
// progress and timeouts.
package filetransfer

import (
	"errors"
)

// ErrFileTooLarge is returned by Chunk when data exceeds maxFileSize.
var ErrFileTooLarge = errors.New("filetransfer: file exceeds max_file_size")

// Chunk is one fragment of a file transfer.
type Chunk struct {
	TransferID  string
	Index       int
	TotalChunks int
	Data        []byte
}

// ChunkData splits data into chunks of chunkSize bytes (the last chunk
// may be shorter). Empty data yields zero chunks. Fails if data exceeds
// maxFileSize.
func ChunkData(data []byte, transferID string, chunkSize int, maxFileSize int64) ([]Chunk, error) {
	if int64(len(data)) > maxFileSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, nil
	}

	total := (len(data) + chunkSize - 1) / chunkSize
	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, Chunk{
			TransferID:  transferID,
			Index:       i,
			TotalChunks: total,
			Data:        append([]byte(nil), data[start:end]...),
		})
	}
	return chunks, nil
}
