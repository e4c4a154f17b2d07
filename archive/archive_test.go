package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trinajstica/baar/config"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/section"
)

// writeSourceFile creates a file with a stable mtime so incremental
// matching in tests is deterministic.
func writeSourceFile(t *testing.T, path string, content []byte, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// addSingle adds one file to the archive at path, creating it if needed.
func addSingle(t *testing.T, archivePath, srcPath string, level format.Level, opts ...AddOption) {
	t.Helper()
	a, err := OpenOrCreate(archivePath, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Add([]Job{{SourceRoot: srcPath, Level: level}}, opts...))
}

func TestCreateFreshArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")

	a, err := Create(path, config.Config{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Header + empty index (u32 count = 0).
	require.Len(t, raw, section.HeaderSize+4)
	require.Equal(t, []byte{0x42, 0x41, 0x41, 0x52, 0x76, 0x31, 0x00, 0x00}, raw[:8])

	hdr, err := section.ParseHeader(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(section.HeaderSize), hdr.IndexOffset)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-archive")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04 definitely a zip header padding padding"), 0o644))

	_, err := Open(path, config.Config{})
	require.ErrorIs(t, err, errs.ErrBadMagic)
}

func TestOpenRejectsTinyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny")
	require.NoError(t, os.WriteFile(path, []byte{0x42, 0x41}, 0o644))

	_, err := Open(path, config.Config{})
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
}

func TestOpenRejectsBogusIndexOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	a, err := Create(path, config.Config{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Point the index far past end-of-file.
	hdr := section.Header{IndexOffset: 1 << 40}
	copy(raw, hdr.Bytes())
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Open(path, config.Config{})
	require.ErrorIs(t, err, errs.ErrInvalidIndex)
}

func TestOpenOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")

	a, err := OpenOrCreate(path, config.Config{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// Second call opens the existing file.
	a, err = OpenOrCreate(path, config.Config{})
	require.NoError(t, err)
	require.Empty(t, a.Index().Entries)
	require.NoError(t, a.Close())
}

func TestMutationRequiresWritableHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	a, err := Create(path, config.Config{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	ro, err := Open(path, config.Config{})
	require.NoError(t, err)
	defer ro.Close()

	require.Error(t, ro.Add([]Job{{SourceRoot: "x", Level: 0}}))
	require.Error(t, ro.Mkdir("d", 0o755))
	require.Error(t, ro.Recompress(format.LevelFast, nil))
}

func TestValidateRegionsOverlap(t *testing.T) {
	// Hand-craft an index with overlapping live payloads.
	dir := t.TempDir()
	src := filepath.Join(dir, "f.txt")
	writeSourceFile(t, src, []byte("0123456789"), time.Now())

	path := filepath.Join(dir, "a.bin")
	addSingle(t, path, src, format.LevelStore)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)

	// Duplicate the only entry under a new name/id with the same region.
	e := a.Index().Entries[0]
	dup := *e
	dup.ID = a.Index().AllocID()
	dup.Name = "clone.txt"
	a.Index().Add(&dup)
	require.NoError(t, a.finalize())
	require.NoError(t, a.Close())

	_, err = Open(path, config.Config{})
	require.ErrorIs(t, err, errs.ErrInvalidIndex)
}
