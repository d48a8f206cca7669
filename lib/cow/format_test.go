// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import "testing"

func TestOpType_String(t *testing.T) {
	cases := map[OpType]string{
		OpCopy:       "copy",
		OpReplace:    "replace",
		OpZero:       "zero",
		OpLabel:      "label",
		OpType(0xFF): "unknown",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("OpType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestCompressionKind_String(t *testing.T) {
	cases := map[CompressionKind]string{
		CompressionNone:        "none",
		CompressionGzip:        "gzip",
		CompressionBrotli:      "brotli",
		CompressionKind(0xFF):  "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("CompressionKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestOperation_HasPayload(t *testing.T) {
	cases := []struct {
		typ  OpType
		want bool
	}{
		{OpCopy, false},
		{OpReplace, true},
		{OpZero, false},
		{OpLabel, false},
	}
	for _, tc := range cases {
		op := Operation{Type: tc.typ}
		if got := op.HasPayload(); got != tc.want {
			t.Errorf("Operation{Type: %v}.HasPayload() = %v, want %v", tc.typ, got, tc.want)
		}
	}
}
