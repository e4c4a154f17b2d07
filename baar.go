// Package baar implements a single-file archive container with per-entry
// DEFLATE compression, optional password-derived stream encryption, CRC
// validation, and POSIX-like metadata.
//
// An archive is one file: a fixed 32-byte header, a data region of opaque
// per-entry blobs, and a trailing index the header points at. Because the
// index sits at the tail, adding entries appends payloads and rewrites only
// the index, never the data region.
//
// # Core Features
//
//   - Streaming add with incremental (skip unchanged) and mirror (delete
//     missing) modes, ignore globs, and cooperative cancellation
//   - Per-entry compression levels 0..4 with automatic level probing and
//     store fallback for incompressible data
//   - Password-derived keystream encryption (PBKDF2-HMAC-SHA256) with a
//     bit-compatible legacy mode for old archives
//   - Compaction, recompression, rename, logical delete, search, and
//     integrity testing
//
// # Basic Usage
//
// Creating an archive and adding a tree:
//
//	import (
//	    "github.com/trinajstica/baar/archive"
//	    "github.com/trinajstica/baar/config"
//	    "github.com/trinajstica/baar/format"
//	)
//
//	ar, _ := archive.OpenOrCreate("backup.baar", config.FromEnv())
//	defer ar.Close()
//
//	err := ar.Add(
//	    []archive.Job{{SourceRoot: "/home/user/docs", Level: format.LevelAuto}},
//	    archive.WithIncremental(),
//	)
//
// Retrieving one entry:
//
//	data, err := ar.ReadEntryByName("docs/notes.txt", "")
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the archive
// package, simplifying the most common use cases. For fine-grained control
// (options, sinks, cancellation), use the archive package directly.
package baar

import (
	"io"

	"github.com/trinajstica/baar/archive"
	"github.com/trinajstica/baar/config"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/status"
)

// Create creates a fresh, empty archive at path.
func Create(path string) (*archive.Archive, error) {
	return archive.Create(path, config.FromEnv())
}

// Open opens an existing archive read-only.
func Open(path string) (*archive.Archive, error) {
	return archive.Open(path, config.FromEnv())
}

// Add streams the sources into the archive at path, creating it when
// absent, using the auto-selected compression level.
func Add(path string, sources ...string) error {
	ar, err := archive.OpenOrCreate(path, config.FromEnv())
	if err != nil {
		return err
	}
	defer ar.Close()

	jobs := make([]archive.Job, 0, len(sources))
	for _, src := range sources {
		jobs = append(jobs, archive.Job{SourceRoot: src, Level: format.LevelAuto})
	}

	return ar.Add(jobs)
}

// Extract unpacks every live entry of the archive at path into destDir.
func Extract(path, destDir, password string) error {
	ar, err := archive.Open(path, config.FromEnv())
	if err != nil {
		return err
	}
	defer ar.Close()

	_, err = ar.ExtractAll(destDir, password, status.Discard)

	return err
}

// Cat writes one entry's plaintext to w.
func Cat(path, name, password string, w io.Writer) error {
	ar, err := archive.Open(path, config.FromEnv())
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Cat(name, password, w)
}

// Test verifies every live entry of the archive at path and returns the
// number of failures.
func Test(path, password string) (int, error) {
	ar, err := archive.Open(path, config.FromEnv())
	if err != nil {
		return 0, err
	}
	defer ar.Close()

	return ar.Test(password, status.Discard)
}
