// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

import (
	"bytes"
	"testing"
)

type sliceStream struct {
	*bytes.Reader
	size int64
}

func (s sliceStream) Size() int64 { return s.size }

func newSliceStream(data []byte) sliceStream {
	return sliceStream{Reader: bytes.NewReader(data), size: int64(len(data))}
}

func TestIdentityDecompressor(t *testing.T) {
	data := bytes.Repeat([]byte{0x7A}, 2048)

	var sink bytes.Buffer
	err := identityDecompressor{}.decompress(newSliceStream(data), &sink, 2048)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), data) {
		t.Fatalf("identity decompress mismatch")
	}
}

func TestIdentityDecompressor_SizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte{0x7A}, 100)

	var sink bytes.Buffer
	err := identityDecompressor{}.decompress(newSliceStream(data), &sink, 2048)
	if err == nil {
		t.Fatalf("expected error on size mismatch")
	}
}

func TestGzipDecompressor_RoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("abcxyz"), 700)[:4096]
	compressed := gzipBlock(t, original)

	var sink bytes.Buffer
	err := gzipDecompressor{}.decompress(newSliceStream(compressed), &sink, 4096)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), original) {
		t.Fatalf("gzip round-trip mismatch")
	}
}

func TestGzipDecompressor_WrongLength(t *testing.T) {
	original := bytes.Repeat([]byte{0x11}, 100)
	compressed := gzipBlock(t, original)

	var sink bytes.Buffer
	err := gzipDecompressor{}.decompress(newSliceStream(compressed), &sink, 4096)
	if err == nil {
		t.Fatalf("expected error decoding a short stream against a larger block size")
	}
}

func TestBrotliDecompressor_RoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("brotli-payload-"), 300)[:4096]
	compressed := brotliBlock(t, original)

	var sink bytes.Buffer
	err := brotliDecompressor{}.decompress(newSliceStream(compressed), &sink, 4096)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), original) {
		t.Fatalf("brotli round-trip mismatch")
	}
}

func TestDecompressorFor_UnknownKind(t *testing.T) {
	_, err := decompressorFor(CompressionKind(42))
	if err == nil {
		t.Fatalf("expected error for unregistered compression id")
	}
}
