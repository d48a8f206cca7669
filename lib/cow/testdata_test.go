// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
)

// memorySource is a [ByteSource] backed by an in-memory byte slice,
// used throughout this package's tests to avoid touching the
// filesystem. It follows io.ReaderAt's contract exactly, including
// returning io.EOF alongside the final, possibly-short read.
type memorySource struct {
	data []byte
}

func (m *memorySource) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *memorySource) ReadAt(offset int64, buf []byte) (int, error) {
	if offset >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// buildContainer assembles a complete, checksum-valid COW container
// with the given block size and operations. Each element of payloads
// is written immediately after the header, in order, and its
// corresponding operation's Source/DataLength are set to match.
// Pass nil payloads for operations that carry no data.
func buildContainer(t *testing.T, blockSize uint32, ops []Operation, payloads [][]byte) []byte {
	t.Helper()

	if len(ops) != len(payloads) {
		t.Fatalf("buildContainer: %d ops but %d payloads", len(ops), len(payloads))
	}

	var body bytes.Buffer
	offset := uint64(headerSize)
	for i := range ops {
		if payloads[i] == nil {
			continue
		}
		ops[i].Source = offset
		ops[i].DataLength = uint64(len(payloads[i]))
		body.Write(payloads[i])
		offset += uint64(len(payloads[i]))
	}

	opsOffset := offset
	var opsTable bytes.Buffer
	for _, op := range ops {
		opsTable.Write(encodeOperation(op))
	}

	header := NewHeader(blockSize, opsOffset, uint64(opsTable.Len()), opsTable.Bytes())

	var out bytes.Buffer
	out.Write(encodeHeader(header, false))
	out.Write(body.Bytes())
	out.Write(opsTable.Bytes())
	return out.Bytes()
}

// gzipBlock compresses data as a standalone gzip stream.
func gzipBlock(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// brotliBlock compresses data as a standalone brotli stream.
func brotliBlock(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("brotli write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("brotli close: %v", err)
	}
	return buf.Bytes()
}
