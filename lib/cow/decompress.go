// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// DataStream is a one-way byte source view exposing its remaining
// length, consumed by the decompressor implementations below.
// [Reader.ReadData] constructs one per call, scoped to a single
// operation's payload.
type DataStream interface {
	io.Reader
	Size() int64
}

// decompressor expands a [DataStream] into exactly blockSize bytes,
// written to sink. A length mismatch (too few or too many decoded
// bytes) is always an error — there is no truncation or padding.
type decompressor interface {
	decompress(stream DataStream, sink io.Writer, blockSize uint32) error
}

func decompressorFor(kind CompressionKind) (decompressor, error) {
	switch kind {
	case CompressionNone:
		return identityDecompressor{}, nil
	case CompressionGzip:
		return gzipDecompressor{}, nil
	case CompressionBrotli:
		return brotliDecompressor{}, nil
	default:
		return nil, fmt.Errorf("unregistered compression id %d", kind)
	}
}

// identityDecompressor copies min(stream.Size(), blockSize) bytes
// unchanged; any mismatch with blockSize is an error.
type identityDecompressor struct{}

func (identityDecompressor) decompress(stream DataStream, sink io.Writer, blockSize uint32) error {
	if stream.Size() != int64(blockSize) {
		return fmt.Errorf("uncompressed payload is %d bytes, want %d", stream.Size(), blockSize)
	}
	written, err := io.Copy(sink, stream)
	if err != nil {
		return fmt.Errorf("copying uncompressed payload: %w", err)
	}
	if written != int64(blockSize) {
		return fmt.Errorf("copied %d bytes, want %d", written, blockSize)
	}
	return nil
}

// gzipDecompressor decodes a standard gzip-wrapped deflate stream.
// The decoded length must equal blockSize exactly.
type gzipDecompressor struct{}

func (gzipDecompressor) decompress(stream DataStream, sink io.Writer, blockSize uint32) error {
	gz, err := gzip.NewReader(stream)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	written, err := io.CopyN(sink, gz, int64(blockSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("decoding gzip stream: %w", err)
	}
	if written != int64(blockSize) {
		return fmt.Errorf("gzip decoded %d bytes, want %d", written, blockSize)
	}

	// Verify there's no surplus data past blockSize.
	var probe [1]byte
	if n, _ := gz.Read(probe[:]); n > 0 {
		return fmt.Errorf("gzip stream has surplus data past block size %d", blockSize)
	}
	return nil
}

// brotliDecompressor decodes a raw brotli stream. The decoded length
// must equal blockSize exactly.
type brotliDecompressor struct{}

func (brotliDecompressor) decompress(stream DataStream, sink io.Writer, blockSize uint32) error {
	br := brotli.NewReader(stream)

	written, err := io.CopyN(sink, br, int64(blockSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("decoding brotli stream: %w", err)
	}
	if written != int64(blockSize) {
		return fmt.Errorf("brotli decoded %d bytes, want %d", written, blockSize)
	}

	var probe [1]byte
	if n, _ := br.Read(probe[:]); n > 0 {
		return fmt.Errorf("brotli stream has surplus data past block size %d", blockSize)
	}
	return nil
}
