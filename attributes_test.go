// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"testing"
)

func TestParseAttributesCRC32Only(t *testing.T) {
	blockCount := 3
	data := make([]byte, 8+blockCount*4)
	binary.LittleEndian.PutUint32(data[0:4], 100)
	binary.LittleEndian.PutUint32(data[4:8], attributesFlagCRC32)
	binary.LittleEndian.PutUint32(data[8:12], 0x11111111)
	binary.LittleEndian.PutUint32(data[12:16], 0x22222222)
	binary.LittleEndian.PutUint32(data[16:20], 0x33333333)

	attrs, err := parseAttributes(data, blockCount)
	if err != nil {
		t.Fatalf("parseAttributes: %v", err)
	}
	if attrs.Version != 100 {
		t.Errorf("Version = %d, want 100", attrs.Version)
	}
	if len(attrs.CRC32) != blockCount || attrs.CRC32[1] != 0x22222222 {
		t.Errorf("CRC32 = %v, want entry[1] == 0x22222222", attrs.CRC32)
	}
	if attrs.Filetime != nil || attrs.MD5 != nil || attrs.PatchFile != nil {
		t.Error("unset flag arrays should remain nil")
	}
}

func TestParseAttributesTruncated(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[4:8], attributesFlagCRC32)

	if _, err := parseAttributes(data, 2); err == nil {
		t.Fatal("parseAttributes with truncated CRC32 array: want error, got nil")
	}
}
