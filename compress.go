// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"fmt"
	"io"

	dsnetbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"
)

// Compression method-mask bits, per spec.md §4.2. Bits combine in a single
// byte preceding each compressed unit when the COMPRESS block flag is set.
const (
	compressionHuffman   = 0x01
	compressionZlib      = 0x02
	compressionPKWare    = 0x08
	compressionBzip2     = 0x10
	compressionSparse    = 0x20
	compressionADPCMMono = 0x40
	compressionADPCM     = 0x80
	// compressionLZMA is a value, not a mask bit: it never combines with
	// the other bits above.
	compressionLZMA = 0x12
)

// decompressSector runs the codec pipeline named by the leading method-mask
// byte of a compressed sector, in the order spec.md §4.2 lists: one ADPCM
// pass (mono if its bit is set, otherwise stereo) innermost, then Huffman,
// then the primary codec (bzip2, else zlib, else PKWARE), then sparse
// outermost, mirroring original_source/compression.rs's flag-combination
// structure generalized to every bit the mask can carry. A mask with a bit
// outside that set, or with none of them, fails with ErrUnsupported.
func decompressSector(data []byte, wantLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty compressed sector", ErrInvalidData)
	}

	method := data[0]
	payload := data[1:]

	if method == compressionLZMA {
		return decompressLZMA(payload, wantLen)
	}

	const knownMethods = compressionBzip2 | compressionZlib | compressionPKWare | compressionSparse | compressionHuffman | compressionADPCMMono | compressionADPCM
	if method&^knownMethods != 0 {
		return nil, fmt.Errorf("%w: compression method 0x%02x", ErrUnsupported, method)
	}

	result := payload
	var err error

	channels := 0
	if method&compressionADPCMMono != 0 {
		channels = 1
	} else if method&compressionADPCM != 0 {
		channels = 2
	}
	if channels != 0 {
		result, err = adpcmDecompress(result, channels)
		if err != nil {
			return nil, err
		}
	}

	if method&compressionHuffman != 0 {
		result, err = huffmanDecompress(result)
		if err != nil {
			return nil, err
		}
	}

	if method&compressionBzip2 != 0 {
		result, err = decompressBzip2(result, wantLen)
	} else if method&compressionZlib != 0 {
		result, err = decompressZlib(result, wantLen)
	} else if method&compressionPKWare != 0 {
		result, err = explode(result, wantLen)
	}
	if err != nil {
		return nil, err
	}

	if method&compressionSparse != 0 {
		result, err = sparseDecompress(result, wantLen)
		if err != nil {
			return nil, err
		}
	}

	if method&(compressionBzip2|compressionZlib|compressionPKWare|compressionSparse|compressionHuffman|compressionADPCMMono|compressionADPCM) == 0 {
		return nil, fmt.Errorf("%w: compression method 0x%02x", ErrUnsupported, method)
	}

	return result, nil
}

// decompressZlib wraps github.com/klauspost/compress/zlib, a drop-in
// replacement for compress/zlib used elsewhere in the retrieval pack
// (distr1-distri) for its better throughput on large archives.
func decompressZlib(data []byte, wantLen int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer r.Close()

	out := make([]byte, wantLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out[:n], nil
}

// decompressBzip2 wraps github.com/dsnet/compress/bzip2, grounded on
// other_examples/manifests/OpenActa-haystack's go.mod.
func decompressBzip2(data []byte, wantLen int) ([]byte, error) {
	r, err := dsnetbzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("bzip2 reader: %w", err)
	}
	defer r.Close()

	out := make([]byte, wantLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("bzip2 decompress: %w", err)
	}
	return out[:n], nil
}

// decompressLZMA wraps github.com/ulikunitz/xz/lzma, grounded on
// other_examples/manifests/ZaparooProject-go-gameid's go.mod. The payload is
// read as a classic LZMA stream, the layout lzma.NewReader expects: a 5-byte
// properties header, an 8-byte uncompressed-size field, then the compressed
// data. wantLen only sizes the output buffer; the decoder is not given it.
func decompressLZMA(data []byte, wantLen int) ([]byte, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: LZMA sector too short", ErrInvalidData)
	}

	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma reader: %w", err)
	}

	out := make([]byte, wantLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("lzma decompress: %w", err)
	}
	return out[:n], nil
}
