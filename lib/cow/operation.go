// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import "encoding/binary"

// encodeOperation serializes op into its on-disk little-endian
// representation: type:u8, compression:u8, _pad:u16, data_length:u64,
// new_block:u64, source:u64 (28 bytes total).
func encodeOperation(op Operation) []byte {
	buf := make([]byte, operationSize)
	buf[0] = byte(op.Type)
	buf[1] = byte(op.Compression)
	// buf[2:4] is reserved padding, always zero.
	binary.LittleEndian.PutUint64(buf[4:12], op.DataLength)
	binary.LittleEndian.PutUint64(buf[12:20], op.NewBlock)
	binary.LittleEndian.PutUint64(buf[20:28], op.Source)
	return buf
}

// decodeOperation parses the on-disk little-endian representation of
// a single operation record. buf must be exactly operationSize bytes.
func decodeOperation(buf []byte) Operation {
	return Operation{
		Type:        OpType(buf[0]),
		Compression: CompressionKind(buf[1]),
		DataLength:  binary.LittleEndian.Uint64(buf[4:12]),
		NewBlock:    binary.LittleEndian.Uint64(buf[12:20]),
		Source:      binary.LittleEndian.Uint64(buf[20:28]),
	}
}
