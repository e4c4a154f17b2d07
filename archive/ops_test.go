package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trinajstica/baar/config"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
)

func TestListProjection(t *testing.T) {
	path, bID := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	entries := a.List()
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.NotZero(t, e.ID)
		require.NotEmpty(t, e.Name)
		require.Equal(t, uint64(17), e.UncompSize)
	}

	// Deleted entries vanish from the listing.
	require.NoError(t, a.MarkDeleted(bID))
	require.Len(t, a.List(), 2)
}

func TestInfo(t *testing.T) {
	path, bID := seedABC(t)

	a, err := Open(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	e, err := a.Info(bID)
	require.NoError(t, err)
	require.Equal(t, "b", e.Name)
	require.NotZero(t, e.MTime)

	_, err = a.Info(12345)
	require.ErrorIs(t, err, errs.ErrEntryNotFound)
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	srcRoot := filepath.Join(dir, "src")
	now := time.Now()
	writeSourceFile(t, filepath.Join(srcRoot, "main.go"), []byte("package main"), now)
	writeSourceFile(t, filepath.Join(srcRoot, "util.go"), []byte("package main"), now)
	writeSourceFile(t, filepath.Join(srcRoot, "docs", "guide.md"), []byte("# guide"), now)

	path := filepath.Join(dir, "a.bin")
	addSingle(t, path, srcRoot, format.LevelStore)

	a, err := Open(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	t.Run("star matches basenames", func(t *testing.T) {
		got, err := a.Search("*.go")
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("path pattern", func(t *testing.T) {
		got, err := a.Search("docs/*.md")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "docs/guide.md", got[0].Name)
	})

	t.Run("question mark", func(t *testing.T) {
		got, err := a.Search("util.g?")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := a.Search("*.rs")
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("empty pattern", func(t *testing.T) {
		_, err := a.Search("")
		require.ErrorIs(t, err, errs.ErrInvalidPattern)
	})

	t.Run("malformed pattern", func(t *testing.T) {
		_, err := a.Search("[unclosed")
		require.ErrorIs(t, err, errs.ErrInvalidPattern)
	})
}

func TestRenameEntry(t *testing.T) {
	path, bID := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)

	before, err := a.Info(bID)
	require.NoError(t, err)
	wantCRC, wantOffset, wantMTime := before.CRC32, before.DataOffset, before.MTime

	require.NoError(t, a.Rename(bID, "renamed/b.txt"))
	require.NoError(t, a.Close())

	// The rename survives a fresh open and changes nothing else.
	a, err = Open(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	e, err := a.Info(bID)
	require.NoError(t, err)
	require.Equal(t, "renamed/b.txt", e.Name)
	require.Equal(t, wantCRC, e.CRC32)
	require.Equal(t, wantOffset, e.DataOffset)
	require.Equal(t, wantMTime, e.MTime)

	data, err := a.ReadEntryByName("renamed/b.txt", "")
	require.NoError(t, err)
	require.Equal(t, []byte("b content padding"), data)
}

func TestRenameUnknownIDIsSilent(t *testing.T) {
	path, _ := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Rename(9999, "whatever"))
}

func TestRenameOntoLiveNameRefused(t *testing.T) {
	path, bID := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	err = a.Rename(bID, "a")
	require.ErrorIs(t, err, errs.ErrEntryExists)
}
