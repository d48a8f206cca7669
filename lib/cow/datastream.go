// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import "io"

// readerDataStream is a short-lived [DataStream] view into a Reader's
// byte source, scoped to a single operation's payload. It must not
// outlive the Reader it was constructed from.
type readerDataStream struct {
	reader    *Reader
	offset    uint64
	remaining uint64
	size      int64
}

func newReaderDataStream(r *Reader, offset, length uint64) *readerDataStream {
	return &readerDataStream{
		reader:    r,
		offset:    offset,
		remaining: length,
		size:      int64(length),
	}
}

// Size implements [DataStream].
func (s *readerDataStream) Size() int64 {
	return s.size
}

// Read implements io.Reader (and so [DataStream]). It serves
// min(len(p), remaining) bytes via [Reader.ReadRaw], advances the
// offset, and decrements the remaining count. Once exhausted it
// returns (0, io.EOF).
func (s *readerDataStream) Read(p []byte) (int, error) {
	if s.remaining == 0 {
		return 0, io.EOF
	}
	toRead := uint64(len(p))
	if toRead > s.remaining {
		toRead = s.remaining
	}
	if toRead == 0 {
		return 0, nil
	}

	n, err := s.reader.ReadRaw(s.offset, toRead, p[:toRead])
	s.offset += uint64(n)
	s.remaining -= uint64(n)
	if err != nil {
		return n, err
	}
	if s.remaining == 0 {
		return n, io.EOF
	}
	return n, nil
}
