// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"bytes"
	"fmt"
	"io"
)

// Reader parses and reads a COW container. Create one with [NewReader],
// bind it to a [ByteSource] exactly once via [Reader.Parse], then use
// [Reader.Header], [Reader.OpIter], [Reader.ReadRaw], and
// [Reader.ReadData]. A Reader is read-only after Parse succeeds and is
// not safe for concurrent use.
type Reader struct {
	source   ByteSource
	fileSize int64
	header   Header
	parsed   bool
}

// NewReader constructs an empty, unparsed reader. Call [Reader.Parse]
// before using any other method.
func NewReader() *Reader {
	return &Reader{}
}

// Parse binds source to the reader and validates the header
// (invariants 1-4: magic, version, declared header size, header
// checksum, and the structural bounds on ops_offset/ops_size).
// Calling Parse again after it has succeeded is a programming error
// and panics.
func (r *Reader) Parse(source ByteSource) error {
	if r.parsed {
		panic("cow: Reader.Parse called twice")
	}

	size, err := source.Size()
	if err != nil {
		return newError(ErrIO, "parse", fmt.Errorf("getting source size: %w", err))
	}
	if size < headerSize {
		return newError(ErrIO, "parse", fmt.Errorf("file size %d is smaller than header size %d", size, headerSize))
	}

	buf := make([]byte, headerSize)
	if err := readFull(source, 0, buf, "parse"); err != nil {
		return err
	}
	header := decodeHeader(buf)

	if err := validateHeaderFields(header, size); err != nil {
		return err
	}

	r.source = source
	r.fileSize = size
	r.header = header
	r.parsed = true
	return nil
}

// requireParsed panics if Parse has not yet succeeded. Every method
// below except Parse and NewReader requires this.
func (r *Reader) requireParsed(op string) {
	if !r.parsed {
		panic("cow: Reader." + op + " called before a successful Parse")
	}
}

// Header returns a copy of the parsed header. Only valid after a
// successful [Reader.Parse].
func (r *Reader) Header() Header {
	r.requireParsed("Header")
	return r.header
}

// FileSize returns the total byte length of the container, as
// reported by the bound [ByteSource] at parse time.
func (r *Reader) FileSize() int64 {
	r.requireParsed("FileSize")
	return r.fileSize
}

// OpIter seeks to ops_offset, reads the full operation table into an
// owned buffer, verifies its SHA-256 checksum (invariant 5), and
// returns a fresh [OpIterator]. The returned iterator owns its buffer
// and may outlive this Reader.
//
// ops_size was already proven to be an exact multiple of the
// operation record size during Parse (invariant 3), so the returned
// iterator never encounters a partial trailing record.
func (r *Reader) OpIter() (*OpIterator, error) {
	r.requireParsed("OpIter")

	buf := make([]byte, r.header.OpsSize)
	if len(buf) > 0 {
		if err := readFull(r.source, int64(r.header.OpsOffset), buf, "op_iter"); err != nil {
			return nil, err
		}
	}

	want := opsChecksum(buf)
	if !bytes.Equal(want[:], r.header.OpsChecksum[:]) {
		return nil, newError(ErrChecksumMismatch, "op_iter", fmt.Errorf("operation table checksum mismatch"))
	}

	return newOpIterator(buf), nil
}

// ReadRaw performs a bounded random read directly against the byte
// source, after validating per invariant 6 that the requested range
// lies strictly within the payload region: offset >= sizeof(Header),
// offset < ops_offset, len < file_size, and offset+len <= ops_offset
// (checked overflow-safe). Any violation returns ErrRange without
// touching the source.
func (r *Reader) ReadRaw(offset, length uint64, buf []byte) (int, error) {
	r.requireParsed("ReadRaw")

	if uint64(len(buf)) < length {
		return 0, newError(ErrRange, "read_raw", fmt.Errorf("buffer of %d bytes is too small for %d requested bytes", len(buf), length))
	}
	if offset < headerSize {
		return 0, newError(ErrRange, "read_raw", fmt.Errorf("offset %d is before the header", offset))
	}
	if offset >= r.header.OpsOffset {
		return 0, newError(ErrRange, "read_raw", fmt.Errorf("offset %d is at or past ops_offset %d", offset, r.header.OpsOffset))
	}
	if length >= uint64(r.fileSize) {
		return 0, newError(ErrRange, "read_raw", fmt.Errorf("length %d is not smaller than file size %d", length, r.fileSize))
	}
	// Overflow-safe: offset < r.header.OpsOffset was just proven, so
	// this subtraction cannot underflow.
	maxLength := r.header.OpsOffset - offset
	if length > maxLength {
		return 0, newError(ErrRange, "read_raw", fmt.Errorf(
			"offset %d + length %d overruns ops_offset %d", offset, length, r.header.OpsOffset))
	}

	if err := readFull(r.source, int64(offset), buf[:length], "read_raw"); err != nil {
		return 0, err
	}
	return int(length), nil
}

// ReadData decompresses operation op's payload into sink, targeting
// exactly one block_size of output. Only operations that reference a
// payload (see [Operation.HasPayload]) should be passed here.
func (r *Reader) ReadData(op Operation, sink io.Writer) error {
	r.requireParsed("ReadData")

	codec, err := decompressorFor(op.Compression)
	if err != nil {
		return newError(ErrUnknownCompression, "read_data", err)
	}

	stream := newReaderDataStream(r, op.Source, op.DataLength)
	if err := codec.decompress(stream, sink, r.header.BlockSize); err != nil {
		if _, ok := Kind(err); ok {
			return err
		}
		return newError(ErrDecompress, "read_data", err)
	}
	return nil
}
