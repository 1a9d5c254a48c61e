// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "errors"

// Sentinel errors returned by this package. Callers should compare with
// errors.Is, since concrete errors are always wrapped with context via
// fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound is returned when a named file does not exist in an
	// archive, or an optional special file (e.g. "(attributes)") is absent.
	ErrNotFound = errors.New("mpq: not found")

	// ErrInvalidFormat is returned when a required structural invariant of
	// the archive (header, directory, or sector layout) does not hold.
	ErrInvalidFormat = errors.New("mpq: invalid format")

	// ErrInvalidData is returned when a parsed payload is internally
	// inconsistent (wrong length, truncated stream, and similar).
	ErrInvalidData = errors.New("mpq: invalid data")

	// ErrAlreadyExists is returned when an extraction target path already
	// exists on disk.
	ErrAlreadyExists = errors.New("mpq: already exists")

	// ErrUnsupported is returned for recognized-but-unimplemented features:
	// patch files, compression methods this package does not decode, and
	// ADPCM channel counts other than 1 or 2.
	ErrUnsupported = errors.New("mpq: unsupported feature")

	// ErrChecksumMismatch is returned when a sector's on-disk bytes (after
	// decryption, before decompression) fail their Adler-32 verification.
	ErrChecksumMismatch = errors.New("mpq: sector checksum mismatch")
)
