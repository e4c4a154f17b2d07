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
)

// seedABC creates an archive with entries "a", "b", "c" and returns its
// path plus the id of "b".
func seedABC(t *testing.T) (string, uint32) {
	t.Helper()
	dir := t.TempDir()
	now := time.Now()
	for _, name := range []string{"a", "b", "c"} {
		writeSourceFile(t, filepath.Join(dir, "src", name), []byte(name+" content padding"), now)
	}

	path := filepath.Join(dir, "a.bin")
	addSingle(t, path, filepath.Join(dir, "src"), format.LevelStore)

	a, err := Open(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	e := a.Index().Lookup("b")
	require.NotNil(t, e)

	return path, e.ID
}

func TestDeleteAndRebuild(t *testing.T) {
	path, bID := seedABC(t)

	before, err := os.Stat(path)
	require.NoError(t, err)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)

	var wantIDs []uint32
	var blobLen uint64
	for _, e := range a.Index().Entries {
		if e.ID == bID {
			blobLen = e.CompSize
			continue
		}
		wantIDs = append(wantIDs, e.ID)
	}

	require.NoError(t, a.Delete(bID))
	require.NoError(t, a.Close())

	// The backup is gone and the file shrank by at least b's blob.
	_, err = os.Stat(path + ".bak")
	require.True(t, os.IsNotExist(err))

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.LessOrEqual(t, after.Size()+int64(blobLen), before.Size()) //nolint: gosec

	reopened, err := Open(path, config.Config{})
	require.NoError(t, err)
	defer reopened.Close()

	entries := reopened.List()
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].Name)
	require.Equal(t, "c", entries[1].Name)

	// Ids survive compaction.
	var gotIDs []uint32
	for _, e := range entries {
		gotIDs = append(gotIDs, e.ID)
	}
	require.Equal(t, wantIDs, gotIDs)

	// Payloads survive byte-exact.
	data, err := reopened.ReadEntryByName("a", "")
	require.NoError(t, err)
	require.Equal(t, []byte("a content padding"), data)

	_, err = reopened.ReadEntryByName("b", "")
	require.ErrorIs(t, err, errs.ErrEntryNotFound)
}

func TestDeleteUnknownID(t *testing.T) {
	path, _ := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	err = a.Delete(9999)
	require.ErrorIs(t, err, errs.ErrEntryNotFound)
}

func TestRebuildDropsDeletedRecords(t *testing.T) {
	path, bID := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	// Logical delete keeps the record; rebuild purges it.
	require.NoError(t, a.MarkDeleted(bID))
	require.Len(t, a.Index().Entries, 3)
	require.Equal(t, 2, a.Index().LiveCount())

	require.NoError(t, a.Rebuild(nil))
	require.Len(t, a.Index().Entries, 2)
	require.Equal(t, 2, a.Index().LiveCount())
}

func TestRebuildPreservesMetadata(t *testing.T) {
	path, _ := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	e := a.Index().Lookup("a")
	require.NotNil(t, e)
	wantMode, wantMTime, wantCRC := e.Mode, e.MTime, e.CRC32

	require.NoError(t, a.Rebuild(nil))

	after := a.Index().Lookup("a")
	require.NotNil(t, after)
	require.Equal(t, wantMode, after.Mode)
	require.Equal(t, wantMTime, after.MTime)
	require.Equal(t, wantCRC, after.CRC32)

	// The rebuilt archive verifies clean.
	failed, err := a.Test("", nil)
	require.NoError(t, err)
	require.Zero(t, failed)
}

func TestRebuildNextIDAboveSurvivors(t *testing.T) {
	path, bID := seedABC(t)

	a, err := OpenRW(path, config.Config{})
	require.NoError(t, err)
	defer a.Close()

	var maxID uint32
	for _, e := range a.Index().Entries {
		if e.ID != bID && e.ID > maxID {
			maxID = e.ID
		}
	}

	require.NoError(t, a.Delete(bID))
	require.Equal(t, maxID+1, a.Index().NextID)
}
