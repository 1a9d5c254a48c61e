// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
)

// adpcmStepTable is the adaptive step-size table for MPQ's ADPCM WAVE
// codec, the same progression used by IMA ADPCM. No pack example wires a
// third-party ADPCM decoder — see DESIGN.md.
var adpcmStepTable = [...]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28,
	31, 34, 37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107,
	118, 130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796, 876,
	963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871,
	5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487,
	12635, 13899, 15289, 16818, 18500, 20350, 22385, 24623,
	27086, 29794, 32767,
}

// adpcmIndexTable adjusts the step index after each 4-bit delta nibble.
var adpcmIndexTable = [...]int32{-1, -1, -1, -1, 2, 4, 6, 8}

// adpcmDecompress decodes an MPQ ADPCM WAVE sector for the given channel
// count (1 = mono, 2 = stereo). Each channel starts with a 16-bit initial
// sample (its step index is not stored and starts at 0), followed by a
// stream of 4-bit signed deltas interleaved across channels.
func adpcmDecompress(data []byte, channels int) ([]byte, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: adpcm channel count %d", ErrUnsupported, channels)
	}
	if len(data) < 2*channels {
		return nil, fmt.Errorf("%w: adpcm sector too short", ErrInvalidData)
	}

	sample := make([]int32, channels)
	index := make([]int32, channels)
	for c := 0; c < channels; c++ {
		sample[c] = int32(int16(binary.LittleEndian.Uint16(data[c*2:])))
		index[c] = 0
	}

	r := newLSBBitReader(data[2*channels:])
	var out []byte
	ch := 0
	for {
		nibble, err := r.readBits(4)
		if err != nil {
			break
		}

		step := adpcmStepTable[index[ch]]
		diff := step >> 3
		if nibble&1 != 0 {
			diff += step >> 2
		}
		if nibble&2 != 0 {
			diff += step >> 1
		}
		if nibble&4 != 0 {
			diff += step
		}
		if nibble&8 != 0 {
			diff = -diff
		}

		sample[ch] += diff
		sample[ch] = clampInt16(sample[ch])

		index[ch] += adpcmIndexTable[nibble&7]
		index[ch] = clampIndex(index[ch])

		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(int16(sample[ch])))
		out = append(out, buf[:]...)

		ch = (ch + 1) % channels
	}

	return out, nil
}

func clampInt16(v int32) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

func clampIndex(v int32) int32 {
	if v < 0 {
		return 0
	}
	if int(v) >= len(adpcmStepTable) {
		return int32(len(adpcmStepTable) - 1)
	}
	return v
}
