// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// encodeHeader serializes h into its on-disk little-endian
// representation. If zeroChecksums is true, the checksum fields are
// written as zero regardless of h's contents — used both when writing
// a fresh header and when recomputing the header checksum (SHA-256 of
// the header with the checksum field zeroed, per the container
// format).
func encodeHeader(h Header, zeroChecksums bool) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.MajorVersion)
	binary.LittleEndian.PutUint16(buf[6:8], h.MinorVersion)
	binary.LittleEndian.PutUint32(buf[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.BlockSize)
	// buf[16:20] is reserved padding, always zero.
	binary.LittleEndian.PutUint64(buf[20:28], h.OpsOffset)
	binary.LittleEndian.PutUint64(buf[28:36], h.OpsSize)
	if !zeroChecksums {
		copy(buf[36:68], h.HeaderChecksum[:])
		copy(buf[68:100], h.OpsChecksum[:])
	}
	return buf
}

// decodeHeader parses the on-disk little-endian representation of a
// header. buf must be exactly headerSize bytes.
func decodeHeader(buf []byte) Header {
	var h Header
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.MajorVersion = binary.LittleEndian.Uint16(buf[4:6])
	h.MinorVersion = binary.LittleEndian.Uint16(buf[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[8:12])
	h.BlockSize = binary.LittleEndian.Uint32(buf[12:16])
	h.OpsOffset = binary.LittleEndian.Uint64(buf[20:28])
	h.OpsSize = binary.LittleEndian.Uint64(buf[28:36])
	copy(h.HeaderChecksum[:], buf[36:68])
	copy(h.OpsChecksum[:], buf[68:100])
	return h
}

// headerChecksum computes the SHA-256 digest of h with both checksum
// fields zeroed, as stored in Header.HeaderChecksum.
func headerChecksum(h Header) [checksumSize]byte {
	return sha256.Sum256(encodeHeader(h, true))
}

// opsChecksum computes the SHA-256 digest of the raw operation-table
// bytes, as stored in Header.OpsChecksum.
func opsChecksum(opsTable []byte) [checksumSize]byte {
	return sha256.Sum256(opsTable)
}

// NewHeader builds a Header ready to be written to disk: magic and
// version are the compiled protocol constants, HeaderSize is set to
// the correct on-disk size, and both checksums are computed from
// blockSize, opsOffset, opsSize, and opsTable.
func NewHeader(blockSize uint32, opsOffset, opsSize uint64, opsTable []byte) Header {
	h := Header{
		Magic:        magicNumber,
		MajorVersion: versionMajor,
		MinorVersion: versionMinor,
		HeaderSize:   headerSize,
		BlockSize:    blockSize,
		OpsOffset:    opsOffset,
		OpsSize:      opsSize,
	}
	h.HeaderChecksum = headerChecksum(h)
	h.OpsChecksum = opsChecksum(opsTable)
	return h
}

// validateHeaderFields checks a freshly decoded header against the
// total byte-source size: magic, declared header size and version,
// then invariants 1-4 of the container format (ops_offset bounds,
// ops_offset+ops_size within the file, ops_size a multiple of the
// operation record size, header checksum). It does not
// touch the operation table (invariant 5) or per-operation ranges
// (invariant 6) — those are checked by [Reader.OpIter] and
// [Reader.ReadRaw] respectively.
func validateHeaderFields(h Header, fileSize int64) error {
	if h.Magic != magicNumber {
		return newError(ErrBadMagic, "parse", fmt.Errorf("magic 0x%08x, want 0x%08x", h.Magic, magicNumber))
	}
	if h.HeaderSize != headerSize {
		return newError(ErrHeaderSizeMismatch, "parse", fmt.Errorf("header_size %d, want %d", h.HeaderSize, headerSize))
	}
	if h.MajorVersion != versionMajor || h.MinorVersion != versionMinor {
		return newError(ErrUnsupportedVersion, "parse", fmt.Errorf(
			"version %d.%d, want %d.%d", h.MajorVersion, h.MinorVersion, versionMajor, versionMinor))
	}

	// Invariant 1: ops_offset >= sizeof(Header) and ops_offset < file_size.
	if h.OpsOffset < headerSize {
		return newError(ErrRange, "parse", fmt.Errorf("ops_offset %d is before the header", h.OpsOffset))
	}
	if int64(h.OpsOffset) >= fileSize {
		return newError(ErrRange, "parse", fmt.Errorf("ops_offset %d is at or beyond file size %d", h.OpsOffset, fileSize))
	}

	// Invariant 2: ops_offset + ops_size <= file_size, overflow-safe.
	// Proven as ops_size <= file_size - ops_offset, which cannot
	// overflow since ops_offset < fileSize was just established.
	maxOpsSize := uint64(fileSize) - h.OpsOffset
	if h.OpsSize > maxOpsSize {
		return newError(ErrRange, "parse", fmt.Errorf(
			"ops_size %d overruns file size %d at ops_offset %d", h.OpsSize, fileSize, h.OpsOffset))
	}

	// Invariant 3: ops_size is an exact multiple of sizeof(Operation).
	if h.OpsSize%operationSize != 0 {
		return newError(ErrRange, "parse", fmt.Errorf(
			"ops_size %d is not a multiple of operation size %d", h.OpsSize, operationSize))
	}

	// Invariant 4: header checksum.
	want := headerChecksum(h)
	if !bytes.Equal(want[:], h.HeaderChecksum[:]) {
		return newError(ErrChecksumMismatch, "parse", fmt.Errorf("header checksum mismatch"))
	}

	return nil
}
