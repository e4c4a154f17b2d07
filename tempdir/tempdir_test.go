package tempdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateNearArchive(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "a.bin")

	r := NewRegistry()
	dir, err := r.Create(archive, "baarx")
	require.NoError(t, err)

	require.Equal(t, base, filepath.Dir(dir))
	require.True(t, strings.HasPrefix(filepath.Base(dir), ".baarx_"))

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())

	require.Equal(t, []string{dir}, r.Dirs())
}

func TestCreateUniqueSuffixes(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "a.bin")

	r := NewRegistry()
	first, err := r.Create(archive, "baarx")
	require.NoError(t, err)
	second, err := r.Create(archive, "baarx")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Len(t, r.Dirs(), 2)
}

func TestCreateFallsBackToTmp(t *testing.T) {
	// An archive in a nonexistent directory forces the /tmp fallback.
	archive := filepath.Join(t.TempDir(), "no", "such", "parent", "a.bin")

	r := NewRegistry()
	dir, err := r.Create(archive, "baarx")
	require.NoError(t, err)
	t.Cleanup(r.CleanupAll)

	require.Equal(t, filepath.Clean(os.TempDir()), filepath.Dir(dir))
	require.True(t, strings.HasPrefix(filepath.Base(dir), "baarx_"))
}

func TestCleanupAll(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "a.bin")

	r := NewRegistry()
	dir, err := r.Create(archive, "baarx")
	require.NoError(t, err)

	// Cleanup removes directories with content.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o600))

	r.CleanupAll()
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
	require.Empty(t, r.Dirs())
}
