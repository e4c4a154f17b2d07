package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/trinajstica/baar/compress"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/index"
	"github.com/trinajstica/baar/section"
	"github.com/trinajstica/baar/status"
)

// Recompress rewrites every live entry at the requested level.
//
// Encrypted blobs are copied verbatim: without the password there is no way
// to be certain the re-encoded payload would round-trip. For the rest, the
// plaintext is recovered and re-encoded; the new payload is kept only when
// it is strictly smaller than the stored one. Entries whose payload cannot
// be decompressed are copied verbatim and counted as failures.
//
// The rewrite goes through a temp file in the archive's directory and an
// atomic rename; the original is kept as `<archive>.bak` until the rename
// lands and retained on failure.
func (a *Archive) Recompress(level format.Level, sink status.Sink) error {
	if err := a.requireWritable(); err != nil {
		return err
	}
	if !level.Valid() {
		return fmt.Errorf("level %d: %w", level, errs.ErrInvalidLevel)
	}
	if sink == nil {
		sink = status.Discard
	}

	pending, err := renameio.TempFile(filepath.Dir(a.path), a.path)
	if err != nil {
		return fmt.Errorf("recompress: %w", err)
	}
	defer pending.Cleanup() //nolint: errcheck

	if _, err := pending.Write(section.NewHeader().Bytes()); err != nil {
		return fmt.Errorf("recompress: write header: %w", err)
	}

	newIx := index.New()
	offset := uint64(section.DataStart)
	failed := 0

	for _, e := range a.ix.Entries {
		if !e.IsLive() {
			continue
		}

		payload, compLevel, flags, ok, err := a.recompressEntry(e, level, sink)
		if err != nil {
			return fmt.Errorf("recompress: entry %d: %w", e.ID, err)
		}
		if !ok {
			failed++
		}

		if _, err := pending.Write(payload); err != nil {
			return fmt.Errorf("recompress: write entry %d: %w", e.ID, err)
		}

		copied := *e
		copied.DataOffset = offset
		copied.CompSize = uint64(len(payload))
		copied.CompLevel = compLevel
		copied.Flags = flags
		newIx.Add(&copied)
		offset += copied.CompSize
	}

	hdr := section.Header{IndexOffset: offset}
	if _, err := pending.Write(newIx.AppendEncode(nil)); err != nil {
		return fmt.Errorf("recompress: write index: %w", err)
	}
	if _, err := pending.WriteAt(hdr.Bytes(), 0); err != nil {
		return fmt.Errorf("recompress: write header: %w", err)
	}

	bakPath := a.path + ".bak"
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("recompress: close: %w", err)
	}
	a.file = nil

	if err := os.Rename(a.path, bakPath); err != nil {
		return fmt.Errorf("recompress: backup: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		// The backup stays in place for manual restore.
		return fmt.Errorf("recompress: commit: %w", err)
	}
	os.Remove(bakPath)

	if err := a.reopen(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d entries: %w", failed, errs.ErrPartialFailure)
	}

	return nil
}

// recompressEntry produces the payload bytes and entry fields for one
// entry. ok is false when the stored payload could not be decoded and was
// copied verbatim instead; err is set only for I/O failures reading the
// source blob, which abort the whole pass.
func (a *Archive) recompressEntry(e *section.Entry, level format.Level, sink status.Sink) ([]byte, format.Level, format.EntryFlag, bool, error) {
	stored, err := a.readPayload(e)
	if err != nil {
		return nil, 0, 0, false, err
	}

	if e.Flags.IsEncrypted() {
		// Cannot recompress without the password; keep the blob as is.
		return stored, e.CompLevel, e.Flags, true, nil
	}

	plain := stored
	if e.Flags.IsCompressed() {
		plain, err = compress.Inflate(stored, int(e.UncompSize)) //nolint: gosec
		if err != nil {
			sink.Emit(fmt.Sprintf("FAIL %s: %v", e.Name, err))
			return stored, e.CompLevel, e.Flags, false, nil
		}
	}

	repacked, compressed, err := compress.Pack(plain, level)
	if err != nil || len(repacked) >= len(stored) {
		// Not an improvement (or not packable); the entry stays unchanged.
		return stored, e.CompLevel, e.Flags, err == nil, nil
	}

	flags := e.Flags &^ format.FlagCompressed
	compLevel := format.LevelStore
	if compressed {
		flags |= format.FlagCompressed
		compLevel = level
	}
	sink.Emit(fmt.Sprintf("%s (%d -> %d bytes)", e.Name, len(stored), len(repacked)))

	return repacked, compLevel, flags, true, nil
}
