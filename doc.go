// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package mpq provides pure Go support for reading MPQ (Mo'PaQ) archives.

MPQ is an archive format created by Blizzard Entertainment, used in games like
Diablo, StarCraft, and World of Warcraft. This package supports MPQ format
versions 1 and 2 for reading: header discovery, the hash/block directory,
and the sectored file reader with its per-sector decryption, checksum
verification, and compression dispatch (zlib, bzip2, LZMA, PKWARE implode,
MPQ Huffman, ADPCM, and sparse/RLE).

# Features

  - Pure Go implementation, no CGO
  - Read-only: opening, listing, and extracting existing archives
  - Support for MPQ format V1 (original, up to 4GB) and V2 (extended header)
  - Chain overlay for patch-style archive stacking, newest archive wins

# Basic Usage

	archive, err := mpq.Open("game.mpq")
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	f, err := archive.OpenFile("Data\\file.txt")
	if err != nil {
		log.Fatal(err)
	}

	buf := make([]byte, f.Size())
	if _, err := f.Read(archive, buf); err != nil {
		log.Fatal(err)
	}

Stacking a patch over a base archive with [Chain]:

	chain := mpq.NewChain()
	chain.Add("base.mpq")
	chain.Add("patch.mpq")
	defer chain.Close()

	data, err := chain.Read("Data\\file.txt") // patch.mpq wins if present in both
	if err != nil {
		log.Fatal(err)
	}

# Path Conventions

MPQ archives use backslash (\) as the path separator. Hashing normalizes
forward slashes to backslashes, so both forms resolve to the same entry.

# Limitations

This package focuses on reading existing archives:

  - No support for writing or modifying archives
  - No support for MPQ format V3/V4 (HET/BET tables, digital signatures)
  - No support for patch-file reconstruction (patch files surface as errors)
  - v2 64-bit extended table offsets are parsed but never composed into seek
    addresses, matching the legacy readers this package is compatible with
*/
package mpq
