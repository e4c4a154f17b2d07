package baar

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopLevelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcRoot := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "note.txt"), []byte("remember the milk"), 0o644))

	path := filepath.Join(dir, "backup.baar")
	require.NoError(t, Add(path, srcRoot))

	failed, err := Test(path, "")
	require.NoError(t, err)
	require.Zero(t, failed)

	var out bytes.Buffer
	require.NoError(t, Cat(path, "note.txt", "", &out))
	require.Equal(t, "remember the milk", out.String())

	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(path, dest, ""))

	got, err := os.ReadFile(filepath.Join(dest, "note.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("remember the milk"), got)
}

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.baar")

	ar, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, ar.Close())

	ar, err = Open(path)
	require.NoError(t, err)
	require.Empty(t, ar.List())
	require.NoError(t, ar.Close())
}
