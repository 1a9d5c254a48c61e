// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"os"
	"strings"
)

// File is a handle on one archive entry: a snapshot of its hash/block table
// entries, its computed file key, and (for sectored files) its sector-offset
// index and optional per-sector checksum array. Decoupling this from the
// archive's own tables lets callers hold multiple File handles against one
// Archive without aliasing its directory slices.
type File struct {
	name  string
	hash  hashTableEntry
	block blockTableEntry
	key   uint32

	sectorOffsets []uint32
	checksums     []uint32
}

// findFile resolves name to its hash/block table entries via a linear probe
// that wraps around modulo the hash table size (spec.md §4.5 and Design
// Notes §9: neither the teacher's bounded-forward probe nor the original
// Rust's unwrapped forward probe wrap correctly — this does).
func (a *Archive) findFile(name string) (hashTableEntry, blockTableEntry, error) {
	count := len(a.hash)
	if count == 0 {
		return hashTableEntry{}, blockTableEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	start := hashString(name, hashTypeTableOffset) & uint32(count-1)
	wantA := hashString(name, hashTypeNameA)
	wantB := hashString(name, hashTypeNameB)

	for i := 0; i < count; i++ {
		idx := (int(start) + i) % count
		entry := a.hash[idx]

		switch entry.BlockIndex {
		case hashTableEmpty:
			return hashTableEntry{}, blockTableEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		case hashTableDeleted:
			continue
		}

		if entry.HashA == wantA && entry.HashB == wantB {
			if int(entry.BlockIndex) >= len(a.block) {
				return hashTableEntry{}, blockTableEntry{}, fmt.Errorf("%w: block index %d out of range", ErrInvalidFormat, entry.BlockIndex)
			}
			return entry, a.block[entry.BlockIndex], nil
		}
	}

	return hashTableEntry{}, blockTableEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// basename returns the path component after the last '\' or '/' separator.
// Returns an error if the name ends in a separator (no filename component).
func basename(name string) (string, error) {
	idx := strings.LastIndexAny(name, `\/`)
	base := name[idx+1:]
	if base == "" {
		return "", fmt.Errorf("%w: unable to extract filename from path %q", ErrInvalidData, name)
	}
	return base, nil
}

// OpenFile resolves name in the archive's directory, computes its file key,
// and (for non-single-unit files) loads its sector-offset index and optional
// per-sector checksum array.
func (a *Archive) OpenFile(name string) (*File, error) {
	hash, block, err := a.findFile(name)
	if err != nil {
		return nil, err
	}
	if block.Flags&filePatchFile != 0 {
		return nil, fmt.Errorf("%w: patch files are not supported", ErrUnsupported)
	}

	base, err := basename(name)
	if err != nil {
		return nil, err
	}

	key := hashString(base, hashTypeFileKey)
	if block.Flags&fileFixKey != 0 {
		key = (key + block.FilePos) ^ block.FileSize
	}

	f := &File{
		name:  name,
		hash:  hash,
		block: block,
		key:   key,
	}

	if block.Flags&fileSingleUnit == 0 {
		if err := f.loadSectorIndex(a); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// loadSectorIndex reads the (numSectors+1)-entry sector-offset table and,
// when SECTOR_CRC and COMPRESS are both set and the trailing region's size
// matches, the per-sector Adler-32 checksum array.
func (f *File) loadSectorIndex(a *Archive) error {
	sectorSize := a.sectorSize
	numSectors := 0
	if f.block.FileSize > 0 {
		numSectors = int((f.block.FileSize + sectorSize - 1) / sectorSize)
	}

	wantChecksums := f.block.Flags&fileSectorCRC != 0 && f.block.Flags&fileCompress != 0
	entries := numSectors + 1
	if wantChecksums {
		entries++
	}

	buf := make([]byte, entries*4)
	base := int64(a.header.ArchiveOffset) + int64(f.block.FilePos)
	if _, err := a.file.ReadAt(buf, base); err != nil {
		return fmt.Errorf("read sector index for %s: %w", f.name, err)
	}

	if f.block.Flags&fileEncrypted != 0 {
		decryptBytes(buf, f.key-1)
	}

	offsets := make([]uint32, entries)
	for i := 0; i < entries; i++ {
		offsets[i] = leUint32(buf[i*4:])
	}

	if wantChecksums {
		f.sectorOffsets = offsets[:numSectors+1]

		checksumRegionLen := offsets[numSectors+1] - offsets[numSectors]
		if checksumRegionLen == uint32(4*numSectors) {
			cbuf := make([]byte, 4*numSectors)
			cbase := int64(a.header.ArchiveOffset) + int64(f.block.FilePos) + int64(offsets[numSectors])
			if _, err := a.file.ReadAt(cbuf, cbase); err != nil {
				return fmt.Errorf("read sector checksums for %s: %w", f.name, err)
			}
			f.checksums = make([]uint32, numSectors)
			for i := 0; i < numSectors; i++ {
				f.checksums[i] = leUint32(cbuf[i*4:])
			}
		}
	} else {
		f.sectorOffsets = offsets
	}

	return nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Size returns the file's unpacked (decoded) size in bytes.
func (f *File) Size() uint32 {
	return f.block.FileSize
}

// Read decodes the file's full contents into buf, which must be at least
// Size() bytes, and returns the number of bytes decoded.
func (f *File) Read(a *Archive, buf []byte) (int, error) {
	if f.block.Flags&filePatchFile != 0 {
		return 0, fmt.Errorf("%w: patch files are not supported", ErrUnsupported)
	}

	if f.block.Flags&fileSingleUnit != 0 {
		return f.readSingleUnit(a, buf)
	}
	return f.readSectored(a, buf)
}

func (f *File) readSingleUnit(a *Archive, buf []byte) (int, error) {
	raw := make([]byte, f.block.CompressedSize)
	base := int64(a.header.ArchiveOffset) + int64(f.block.FilePos)
	if _, err := a.file.ReadAt(raw, base); err != nil {
		return 0, fmt.Errorf("read %s: %w", f.name, err)
	}

	if f.block.Flags&fileEncrypted != 0 {
		decryptBytes(raw, f.key)
	}

	var decoded []byte
	var err error
	switch {
	case f.block.Flags&fileCompress != 0 && f.block.FileSize > f.block.CompressedSize:
		decoded, err = decompressSector(raw, int(f.block.FileSize))
	case f.block.Flags&fileImplode != 0:
		decoded, err = explode(raw, int(f.block.FileSize))
	default:
		decoded = raw
	}
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", f.name, err)
	}

	n := copy(buf, decoded)
	return n, nil
}

func (f *File) readSectored(a *Archive, buf []byte) (int, error) {
	sectorSize := int(a.sectorSize)
	total := 0

	for i := 0; i < len(f.sectorOffsets)-1; i++ {
		start, end := f.sectorOffsets[i], f.sectorOffsets[i+1]
		onDisk := make([]byte, end-start)
		base := int64(a.header.ArchiveOffset) + int64(f.block.FilePos) + int64(start)
		if _, err := a.file.ReadAt(onDisk, base); err != nil {
			return total, fmt.Errorf("read sector %d of %s: %w", i, f.name, err)
		}

		if f.block.Flags&fileEncrypted != 0 {
			decryptBytes(onDisk, f.key+uint32(i))
		}

		if f.checksums != nil && i < len(f.checksums) && f.checksums[i] != 0 {
			if adler32(onDisk) != f.checksums[i] {
				return total, fmt.Errorf("%w: sector %d of %s", ErrChecksumMismatch, i, f.name)
			}
		}

		remaining := int(f.block.FileSize) - total
		want := sectorSize
		if remaining < want {
			want = remaining
		}
		raw := len(onDisk) >= sectorSize || len(onDisk) >= remaining

		var decoded []byte
		var err error
		switch {
		case f.block.Flags&fileCompress != 0 && !raw:
			decoded, err = decompressSector(onDisk, want)
		case f.block.Flags&fileImplode != 0 && !raw:
			decoded, err = explode(onDisk, want)
		default:
			decoded = onDisk
		}
		if err != nil {
			return total, fmt.Errorf("decode sector %d of %s: %w", i, f.name, err)
		}

		n := copy(buf[total:], decoded)
		total += n
	}

	return total, nil
}

// Extract decodes the file's full contents and writes them to path,
// failing if path already exists.
func (f *File) Extract(a *Archive, path string) (int, error) {
	if _, err := os.Stat(path); err == nil {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	} else if !os.IsNotExist(err) {
		return 0, err
	}

	buf := make([]byte, f.Size())
	n, err := f.Read(a, buf)
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return 0, err
	}
	defer out.Close()

	if _, err := out.Write(buf[:n]); err != nil {
		return 0, err
	}
	return n, nil
}
