// Package archive implements the baar container engine: opening and
// creating archives, streaming add with incremental and mirror modes,
// single-entry retrieval, integrity testing, compaction, recompression, and
// the read-side operations (list, info, cat, search, rename, delete).
//
// An Archive owns its file handle for the duration of one operation
// sequence; concurrent writers are not supported and must be prevented by
// the caller. In-place mutations follow the same shape: append to the data
// region (never rewrite it), build the new index in memory, then commit by
// writing the index at end-of-file and pointing the header at it. Rebuild
// and Recompress instead write a fresh file that replaces the archive.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/trinajstica/baar/config"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/index"
	"github.com/trinajstica/baar/section"
)

// maxInt is the largest payload the engine will buffer in memory.
const maxInt = int64(^uint(0) >> 1)

// Archive is an open baar container plus its decoded index.
//
// The in-memory index is authoritative only between open and the next
// finalize; every operation sequence starts by decoding it fresh.
type Archive struct {
	path     string
	file     *os.File
	hdr      section.Header
	ix       *index.Index
	cfg      config.Config
	writable bool
}

// Open opens an existing archive read-only and decodes its index.
func Open(path string, cfg config.Config) (*Archive, error) {
	return open(path, cfg, false)
}

// OpenRW opens an existing archive for mutation.
func OpenRW(path string, cfg config.Config) (*Archive, error) {
	return open(path, cfg, true)
}

// Create creates a fresh archive at path: a header whose index offset
// points directly past it, followed by an empty index.
func Create(path string, cfg config.Config) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}

	a := &Archive{
		path:     path,
		file:     f,
		hdr:      *section.NewHeader(),
		ix:       index.New(),
		cfg:      cfg,
		writable: true,
	}
	// The header goes first so finalize appends the empty index after it.
	if _, err := f.Write(a.hdr.Bytes()); err != nil {
		f.Close()
		os.Remove(path)

		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	if err := a.finalize(); err != nil {
		f.Close()
		os.Remove(path)

		return nil, err
	}

	return a, nil
}

// OpenOrCreate opens the archive for mutation, creating it when absent.
func OpenOrCreate(path string, cfg config.Config) (*Archive, error) {
	a, err := OpenRW(path, cfg)
	if err == nil {
		return a, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Create(path, cfg)
	}

	return nil, err
}

func open(path string, cfg config.Config, writable bool) (*Archive, error) {
	mode := os.O_RDONLY
	if writable {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(path, mode, 0)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	a := &Archive{
		path:     path,
		file:     f,
		cfg:      cfg,
		writable: writable,
	}
	if err := a.load(); err != nil {
		f.Close()
		return nil, err
	}

	return a, nil
}

// load reads the header and decodes the trailing index.
func (a *Archive) load() error {
	fi, err := a.file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", a.path, err)
	}

	hdrBuf := make([]byte, section.HeaderSize)
	if _, err := a.file.ReadAt(hdrBuf, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("archive %s: %w", a.path, errs.ErrInvalidHeaderSize)
		}

		return fmt.Errorf("read header %s: %w", a.path, err)
	}
	if err := a.hdr.Parse(hdrBuf); err != nil {
		return fmt.Errorf("archive %s: %w", a.path, err)
	}

	if a.hdr.IndexOffset == 0 {
		// No index yet: treat as empty.
		a.ix = index.New()
		return nil
	}

	size := uint64(fi.Size())
	if a.hdr.IndexOffset < section.HeaderSize || a.hdr.IndexOffset > size {
		return fmt.Errorf("archive %s: index offset %d: %w", a.path, a.hdr.IndexOffset, errs.ErrInvalidIndex)
	}

	ixBuf := make([]byte, size-a.hdr.IndexOffset)
	if _, err := a.file.ReadAt(ixBuf, int64(a.hdr.IndexOffset)); err != nil { //nolint: gosec
		return fmt.Errorf("read index %s: %w", a.path, err)
	}

	ix, err := index.Decode(ixBuf)
	if err != nil {
		return fmt.Errorf("archive %s: %w", a.path, err)
	}

	if err := validateRegions(ix, a.hdr.IndexOffset); err != nil {
		return fmt.Errorf("archive %s: %w", a.path, err)
	}

	a.ix = ix

	return nil
}

// validateRegions checks that every live payload lies inside the data
// region and that no two live payloads overlap.
func validateRegions(ix *index.Index, indexOffset uint64) error {
	live := make([]*section.Entry, 0, len(ix.Entries))
	for _, e := range ix.Entries {
		if !e.IsLive() || e.CompSize == 0 {
			continue
		}
		if e.DataOffset < section.DataStart || e.DataOffset+e.CompSize > indexOffset {
			return errs.ErrInvalidIndex
		}
		live = append(live, e)
	}

	sort.Slice(live, func(i, j int) bool { return live[i].DataOffset < live[j].DataOffset })
	for i := 1; i < len(live); i++ {
		if live[i].DataOffset < live[i-1].DataOffset+live[i-1].CompSize {
			return errs.ErrInvalidIndex
		}
	}

	return nil
}

// finalize commits the in-memory index: it is appended at end-of-file, the
// header's index offset is rewritten, and the file is flushed.
func (a *Archive) finalize() error {
	end, err := a.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek end %s: %w", a.path, err)
	}

	buf := a.ix.AppendEncode(nil)
	if _, err := a.file.Write(buf); err != nil {
		return fmt.Errorf("write index %s: %w", a.path, err)
	}

	a.hdr.IndexOffset = uint64(end) //nolint: gosec
	if _, err := a.file.WriteAt(a.hdr.Bytes(), 0); err != nil {
		return fmt.Errorf("write header %s: %w", a.path, err)
	}

	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", a.path, err)
	}

	return nil
}

// Path returns the archive's file path.
func (a *Archive) Path() string { return a.path }

// Index exposes the decoded index for read-side inspection. Mutating it
// directly bypasses the engine's invariants.
func (a *Archive) Index() *index.Index { return a.ix }

// Close releases the file handle. The Archive is unusable afterwards.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil

	return err
}

// requireWritable guards mutating operations on read-only handles.
func (a *Archive) requireWritable() error {
	if !a.writable {
		return fmt.Errorf("archive %s: opened read-only", a.path)
	}

	return nil
}

// endOfData returns the current end-of-file offset, which is where the next
// payload blob will land.
func (a *Archive) endOfData() (int64, error) {
	return a.file.Seek(0, io.SeekEnd)
}
