// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"fmt"
	"io"
	"os"
)

// ByteSource is a random-access byte provider. The reader never seeks
// or reads a source concurrently with itself; callers grant exclusive
// use of a source for the lifetime of the [Reader] bound to it.
type ByteSource interface {
	// Size returns the total number of bytes available from the
	// source.
	Size() (int64, error)

	// ReadAt reads len(buf) bytes starting at offset. Short reads are
	// legal (matching io.ReaderAt's contract loosely); the caller
	// (this package) loops until buf is filled or an error occurs.
	// Returning fewer bytes than requested with a nil error is only
	// valid when more data will be available on a subsequent call at
	// the advanced offset — exactly io.ReaderAt semantics.
	ReadAt(offset int64, buf []byte) (int, error)
}

// FileSource adapts an *os.File to [ByteSource].
type FileSource struct {
	file *os.File
}

// NewFileSource wraps an already-open file for use as a [ByteSource].
// The caller retains ownership of file and must close it after the
// [Reader] bound to this source is no longer needed.
func NewFileSource(file *os.File) *FileSource {
	return &FileSource{file: file}
}

// Size implements [ByteSource].
func (s *FileSource) Size() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	return info.Size(), nil
}

// ReadAt implements [ByteSource].
func (s *FileSource) ReadAt(offset int64, buf []byte) (int, error) {
	return s.file.ReadAt(buf, offset)
}

// readFull reads exactly len(buf) bytes from src at offset, looping
// internally over short reads. EOF before buf is filled is reported
// as an ErrIO [*Error].
func readFull(src ByteSource, offset int64, buf []byte, op string) error {
	total := 0
	for total < len(buf) {
		n, err := src.ReadAt(offset+int64(total), buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(buf) {
				break
			}
			return newError(ErrIO, op, fmt.Errorf("reading %d bytes at offset %d: %w", len(buf), offset, err))
		}
		if n == 0 {
			return newError(ErrIO, op, fmt.Errorf("short read at offset %d: got %d of %d bytes", offset, total, len(buf)))
		}
	}
	return nil
}
