// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"compress/zlib"
	"testing"

	dsnetbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz/lzma"
)

// TestDecompressSectorZlib builds a fixture with the standard library's
// zlib writer (wire-compatible with github.com/klauspost/compress/zlib,
// which decompressSector actually calls) and checks the method-mask
// dispatch path end to end.
func TestDecompressSectorZlib(t *testing.T) {
	want := bytes.Repeat([]byte("mpq sector payload "), 64)

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(want); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	sector := append([]byte{compressionZlib}, compressed.Bytes()...)

	got, err := decompressSector(sector, len(want))
	if err != nil {
		t.Fatalf("decompressSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decompressSector() length = %d, want %d", len(got), len(want))
	}
}

// TestDecompressSectorBzip2 builds a fixture with github.com/dsnet/compress/bzip2's
// writer (the same package decompressSector's bzip2 path reads with) and
// checks the method-mask dispatch path end to end.
func TestDecompressSectorBzip2(t *testing.T) {
	want := bytes.Repeat([]byte("mpq sector payload via bzip2 "), 64)

	var compressed bytes.Buffer
	w, err := dsnetbzip2.NewWriter(&compressed, nil)
	if err != nil {
		t.Fatalf("bzip2.NewWriter: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("bzip2 write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("bzip2 close: %v", err)
	}

	sector := append([]byte{compressionBzip2}, compressed.Bytes()...)

	got, err := decompressSector(sector, len(want))
	if err != nil {
		t.Fatalf("decompressSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decompressSector() = %q, want %q", got, want)
	}
}

// TestDecompressSectorLZMA builds a fixture with github.com/ulikunitz/xz/lzma's
// writer (the same package decompressSector's LZMA path reads with) and
// checks the (non-mask) LZMA method-byte dispatch.
func TestDecompressSectorLZMA(t *testing.T) {
	want := bytes.Repeat([]byte("mpq sector payload via lzma "), 64)

	var compressed bytes.Buffer
	w, err := lzma.NewWriter(&compressed)
	if err != nil {
		t.Fatalf("lzma.NewWriter: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("lzma write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lzma close: %v", err)
	}

	sector := append([]byte{compressionLZMA}, compressed.Bytes()...)

	got, err := decompressSector(sector, len(want))
	if err != nil {
		t.Fatalf("decompressSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decompressSector() = %q, want %q", got, want)
	}
}

// TestDecompressSectorZlibThenSparse combines two method-mask bits in one
// sector: COMPRESS's zlib bit and the sparse bit. Per spec.md §4.2 the
// primary codec runs before sparse (sparse is outermost), so the fixture's
// zlib stream holds the sparse-encoded control stream, not the final bytes.
// This is the shape of fixture compress_test.go lacked before the pipeline
// order in decompressSector was fixed: a mask combining two bits whose
// relative order matters.
func TestDecompressSectorZlibThenSparse(t *testing.T) {
	want := append([]byte{'A', 'B'}, make([]byte, 50)...)

	// Sparse control stream decoding to want: literal "AB", then a 50-byte
	// zero run, matching sparseDecompress's control-byte scheme.
	mid := []byte{2, 'A', 'B', 0, 50}

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(mid); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	sector := append([]byte{compressionZlib | compressionSparse}, compressed.Bytes()...)

	got, err := decompressSector(sector, len(want))
	if err != nil {
		t.Fatalf("decompressSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decompressSector() = %v, want %v (zlib decode must run before sparse decode)", got, want)
	}
}

// TestDecompressSectorADPCMBeforeHuffman locks in the relative order of the
// two WAVE-audio stages (ADPCM mono/stereo and Huffman): spec.md §4.2 lists
// ADPCM innermost, consuming the raw sector bytes directly, with Huffman
// decode applied to ADPCM's output. Huffman's adaptive model makes it
// impractical to hand-build a combined fixture with a known plaintext (it
// requires a matching encoder for the custom cumulative-frequency scheme),
// so this instead checks that decompressSector's combined-mask path agrees
// with chaining the two decoders directly in the documented order — which
// fails as soon as the dispatcher's internal order diverges from it.
func TestDecompressSectorADPCMBeforeHuffman(t *testing.T) {
	channels := 1
	raw := []byte{0x00, 0x00, 0x53, 0x27, 0x81, 0x42, 0x19}
	mask := byte(compressionADPCMMono | compressionHuffman)
	sector := append([]byte{mask}, raw...)

	x1, err := adpcmDecompress(raw, channels)
	if err != nil {
		t.Fatalf("adpcmDecompress: %v", err)
	}
	want, wantErr := huffmanDecompress(x1)

	got, err := decompressSector(sector, len(want))
	if (err == nil) != (wantErr == nil) {
		t.Fatalf("decompressSector() error = %v, want error-ness to match the ADPCM-then-Huffman reference chain's error %v", err, wantErr)
	}
	if err == nil && !bytes.Equal(got, want) {
		t.Fatalf("decompressSector() = %v, want %v (ADPCM decode output must feed Huffman decode)", got, want)
	}
}

func TestDecompressSectorUnknownMethod(t *testing.T) {
	sector := []byte{0x7F, 0x00, 0x01}
	if _, err := decompressSector(sector, 2); err == nil {
		t.Fatal("decompressSector with unknown method: want error, got nil")
	}
}

func TestSparseRoundTripFixture(t *testing.T) {
	// Control stream: literal run "AB", then a 3-byte zero run, then literal "C".
	encoded := []byte{2, 'A', 'B', 0, 3, 1, 'C'}
	want := []byte{'A', 'B', 0, 0, 0, 'C'}

	got, err := sparseDecompress(encoded, len(want))
	if err != nil {
		t.Fatalf("sparseDecompress: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("sparseDecompress() = %v, want %v", got, want)
	}
}

func TestExplodeLiteralOnly(t *testing.T) {
	// Two literal tokens: flag bit 0 then a raw byte, LSB-first bit packing.
	// Token layout per byte (bit0 = flag, bits1-8 = literal byte, spilling
	// into the next input byte since literal is 8 bits after a 1-bit flag).
	r := newLSBBitWriterForTest()
	r.writeBits(0, 1)
	r.writeBits(uint32('X'), 8)
	r.writeBits(0, 1)
	r.writeBits(uint32('Y'), 8)

	got, err := explode(r.bytes(), 2)
	if err != nil {
		t.Fatalf("explode: %v", err)
	}
	if string(got) != "XY" {
		t.Fatalf("explode() = %q, want %q", got, "XY")
	}
}

// lsbBitWriterForTest is the write-side counterpart to lsbBitReader, used
// only to build fixtures for explode's decode tests.
type lsbBitWriterForTest struct {
	buf []byte
	bit uint
}

func newLSBBitWriterForTest() *lsbBitWriterForTest {
	return &lsbBitWriterForTest{buf: []byte{0}}
}

func (w *lsbBitWriterForTest) writeBits(v uint32, n int) {
	for i := 0; i < n; i++ {
		if (v>>i)&1 != 0 {
			w.buf[len(w.buf)-1] |= 1 << w.bit
		}
		w.bit++
		if w.bit == 8 {
			w.bit = 0
			w.buf = append(w.buf, 0)
		}
	}
}

func (w *lsbBitWriterForTest) bytes() []byte {
	return w.buf
}
