// Package errs defines the sentinel errors shared across the baar archive
// engine.
//
// All errors are plain sentinel values so callers can match them with
// errors.Is after any amount of fmt.Errorf("%w") wrapping:
//
//	data, err := ar.ReadEntry(id, password)
//	if errors.Is(err, errs.ErrDecryptFailed) {
//	    // wrong password
//	}
package errs

import "errors"

// Format errors: the container bytes do not describe a valid archive.
var (
	// ErrBadMagic indicates the file does not start with the BAARv1 magic.
	ErrBadMagic = errors.New("invalid magic number, not a baar archive")

	// ErrTruncated indicates a read crossed end-of-file while decoding the
	// index or an entry payload. A short header is ErrInvalidHeaderSize.
	ErrTruncated = errors.New("unexpected end of file")

	// ErrInvalidHeaderSize indicates the header region is shorter than the
	// fixed 32-byte layout.
	ErrInvalidHeaderSize = errors.New("invalid header size")

	// ErrInvalidIndex indicates the index offset or an entry record is
	// inconsistent with the file size.
	ErrInvalidIndex = errors.New("invalid index")
)

// Payload errors: a stored blob cannot be turned back into its plaintext.
var (
	// ErrDecompression indicates inflate failed or produced an unexpected
	// number of bytes.
	ErrDecompression = errors.New("decompression failed")

	// ErrDecryptFailed indicates a CRC mismatch on an encrypted entry,
	// which is the engine's only wrong-password signal.
	ErrDecryptFailed = errors.New("decryption failed, wrong password")

	// ErrCorruptEntry indicates a CRC or size mismatch on an entry that is
	// not encrypted.
	ErrCorruptEntry = errors.New("entry data corrupted")
)

// Lookup and argument errors.
var (
	// ErrEntryNotFound indicates a by-id or by-name lookup yielded no live
	// entry.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrEntryExists indicates an attempt to create a directory entry whose
	// name is already live in the archive.
	ErrEntryExists = errors.New("entry already exists")

	// ErrInvalidLevel indicates a compression level outside the 0..4 range.
	ErrInvalidLevel = errors.New("invalid compression level")

	// ErrInvalidPattern indicates an empty or malformed search pattern.
	ErrInvalidPattern = errors.New("invalid search pattern")

	// ErrFileTooLarge indicates a source file exceeds the maximum payload
	// size the engine buffers in memory.
	ErrFileTooLarge = errors.New("file too large")
)

// Control-flow errors.
var (
	// ErrCancelled indicates the operation observed a cancellation signal
	// and stopped early. The archive is left consistent.
	ErrCancelled = errors.New("operation cancelled")

	// ErrPartialFailure indicates one or more entries failed while the
	// operation continued with the rest.
	ErrPartialFailure = errors.New("completed with errors")
)
