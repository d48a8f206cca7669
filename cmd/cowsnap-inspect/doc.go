// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cowsnap-inspect parses a COW container file and prints its header
// and operation table to the terminal. It exercises lib/cow's header
// and operation-table read path (Parse, Header, FileSize, OpIter) as a
// standalone diagnostic tool, the same role the original
// snapshot_manager binaries served alongside the library they wrapped.
// It does not decode operation payloads.
package main
