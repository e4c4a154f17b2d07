package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/trinajstica/baar/index"
	"github.com/trinajstica/baar/section"
)

// Rebuild compacts the archive: live entries not in the exclude set are
// copied into a fresh container and everything else is physically dropped.
//
// Blobs are copied verbatim (no decrypt, no recompress) and every other
// field, including the entry id, is preserved. The original file is kept
// as `<archive>.bak` for the duration of the pass and removed on success;
// on failure the backup is retained so the caller can restore it by
// renaming it back.
func (a *Archive) Rebuild(exclude map[uint32]bool) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	bakPath := a.path + ".bak"

	if err := a.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", a.path, err)
	}
	a.file = nil

	if err := os.Rename(a.path, bakPath); err != nil {
		return fmt.Errorf("backup %s: %w", a.path, err)
	}

	if err := a.rebuildFrom(bakPath, exclude); err != nil {
		// Leave no partial archive next to the retained backup.
		os.Remove(a.path)

		return err
	}

	os.Remove(bakPath)

	return a.reopen()
}

// rebuildFrom copies the live, non-excluded entries of the backup into a
// fresh archive at a.path.
func (a *Archive) rebuildFrom(bakPath string, exclude map[uint32]bool) error {
	src, err := Open(bakPath, a.cfg)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(a.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("rebuild: create %s: %w", a.path, err)
	}
	defer dst.Close()

	// Header placeholder; the index offset is rewritten after the copy.
	if _, err := dst.Write(section.NewHeader().Bytes()); err != nil {
		return fmt.Errorf("rebuild: write header: %w", err)
	}

	newIx := index.New()
	offset := uint64(section.DataStart)

	for _, e := range src.ix.Entries {
		if !e.IsLive() || exclude[e.ID] {
			continue
		}

		if e.CompSize > 0 {
			blob := io.NewSectionReader(src.file, int64(e.DataOffset), int64(e.CompSize)) //nolint: gosec
			if _, err := io.Copy(dst, blob); err != nil {
				return fmt.Errorf("rebuild: copy entry %d: %w", e.ID, err)
			}
		}

		copied := *e
		copied.DataOffset = offset
		newIx.Add(&copied)
		offset += e.CompSize
	}

	hdr := section.Header{IndexOffset: offset}
	if _, err := dst.Write(newIx.AppendEncode(nil)); err != nil {
		return fmt.Errorf("rebuild: write index: %w", err)
	}
	if _, err := dst.WriteAt(hdr.Bytes(), 0); err != nil {
		return fmt.Errorf("rebuild: write header: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("rebuild: sync: %w", err)
	}

	return nil
}

// reopen re-acquires the file handle and decodes the fresh index after a
// whole-file rewrite.
func (a *Archive) reopen() error {
	if a.file != nil {
		a.file.Close()
		a.file = nil
	}

	f, err := os.OpenFile(a.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", a.path, err)
	}
	a.file = f

	if err := a.load(); err != nil {
		f.Close()
		a.file = nil

		return err
	}

	return nil
}
