// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// Flags carried in the optional "(attributes)" special file. Format per
// StormLib's SFileAttributes.cpp, documented in the icza/mpq package doc.
const (
	attributesFlagCRC32    = 0x00000001
	attributesFlagFiletime = 0x00000002
	attributesFlagMD5      = 0x00000004
	attributesFlagPatchBit = 0x00000008
)

// Attributes holds the parsed contents of the optional "(attributes)"
// special file: one entry per block-table slot, in block-table order.
// Any array the archive's flags byte does not advertise is left nil.
type Attributes struct {
	Version   uint32
	Flags     uint32
	CRC32     []uint32
	Filetime  []uint64
	MD5       [][16]byte
	PatchFile []bool
}

// parseAttributes decodes the raw "(attributes)" payload. blockCount is the
// archive's block-table entry count, since the file carries exactly one
// record per block-table slot regardless of how many slots are live files.
func parseAttributes(data []byte, blockCount int) (*Attributes, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: attributes file too small", ErrInvalidData)
	}

	a := &Attributes{
		Version: binary.LittleEndian.Uint32(data[0:4]),
		Flags:   binary.LittleEndian.Uint32(data[4:8]),
	}

	off := 8
	need := func(n int) error {
		if off+n > len(data) {
			return fmt.Errorf("%w: attributes file truncated", ErrInvalidData)
		}
		return nil
	}

	if a.Flags&attributesFlagCRC32 != 0 {
		n := blockCount * 4
		if err := need(n); err != nil {
			return nil, err
		}
		a.CRC32 = make([]uint32, blockCount)
		for i := 0; i < blockCount; i++ {
			a.CRC32[i] = binary.LittleEndian.Uint32(data[off+i*4:])
		}
		off += n
	}

	if a.Flags&attributesFlagFiletime != 0 {
		n := blockCount * 8
		if err := need(n); err != nil {
			return nil, err
		}
		a.Filetime = make([]uint64, blockCount)
		for i := 0; i < blockCount; i++ {
			a.Filetime[i] = binary.LittleEndian.Uint64(data[off+i*8:])
		}
		off += n
	}

	if a.Flags&attributesFlagMD5 != 0 {
		n := blockCount * 16
		if err := need(n); err != nil {
			return nil, err
		}
		a.MD5 = make([][16]byte, blockCount)
		for i := 0; i < blockCount; i++ {
			copy(a.MD5[i][:], data[off+i*16:off+i*16+16])
		}
		off += n
	}

	if a.Flags&attributesFlagPatchBit != 0 {
		n := (blockCount + 7) / 8
		if err := need(n); err != nil {
			return nil, err
		}
		a.PatchFile = make([]bool, blockCount)
		for i := 0; i < blockCount; i++ {
			byteIdx, bit := i/8, uint(i%8)
			a.PatchFile[i] = data[off+byteIdx]&(1<<bit) != 0
		}
		off += n
	}

	return a, nil
}

// verifyCRC32 reports whether decoded file content matches the attributes
// entry recorded for the given block-table index. Returns true if the
// archive carries no CRC32 attribute data at all (nothing to contradict).
func (a *Attributes) verifyCRC32(blockIndex int, content []byte) bool {
	if a == nil || a.CRC32 == nil {
		return true
	}
	if blockIndex < 0 || blockIndex >= len(a.CRC32) {
		return true
	}
	return a.CRC32[blockIndex] == crc32(content)
}
