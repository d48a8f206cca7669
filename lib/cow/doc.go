// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cow parses and reads the COW (copy-on-write) container
// format used during Android-style A/B OTA merges: a binary file
// recording block-level deltas against a base device image.
//
// The package is organized in layers, each usable independently:
//
//   - Header: fixed-size on-disk record, decoded field by field with
//     explicit little-endian reads (never raw struct
//     reinterpretation). Parsing validates magic, versions, declared
//     header size, and the SHA-256 header checksum.
//
//   - Operations: fixed-width records describing one block action
//     each (copy, replace, zero-fill, label). An [OpIterator] walks a
//     verified, in-memory copy of the operation table in on-disk
//     order; it is single-pass and never re-reads the underlying
//     byte source.
//
//   - Decompression: a small codec registry (identity, gzip, brotli)
//     that expands a per-operation payload to exactly one block of
//     output.
//
//   - Reader: the facade tying the above together. One [Reader] binds
//     exactly once to a [ByteSource] via [Reader.Parse] and is
//     read-only afterward. It is not safe for concurrent use by
//     multiple callers.
//
// Every offset and length that crosses the package boundary is
// treated as untrusted: range checks are overflow-safe and always
// run before any I/O is attempted.
package cow
