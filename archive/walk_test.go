package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/internal/interrupt"
)

func TestWalkDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeSourceFile(t, filepath.Join(root, "b.txt"), []byte("b"), now)
	writeSourceFile(t, filepath.Join(root, "a.txt"), []byte("a"), now)
	writeSourceFile(t, filepath.Join(root, "dir", "c.txt"), []byte("c"), now)
	writeSourceFile(t, filepath.Join(root, "dir", "nested", "d.txt"), []byte("d"), now)

	var got []string
	err := walkTree(root, nil, nil, func(item walkItem) error {
		got = append(got, item.relPath)
		return nil
	})
	require.NoError(t, err)

	// Files of a directory first (name order), then subtrees depth-first.
	require.Equal(t, []string{"a.txt", "b.txt", "dir/c.txt", "dir/nested/d.txt"}, got)
}

func TestWalkSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "only.txt")
	writeSourceFile(t, file, []byte("x"), time.Now())

	var got []walkItem
	err := walkTree(file, nil, nil, func(item walkItem) error {
		got = append(got, item)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "only.txt", got[0].relPath)
	require.Equal(t, file, got[0].srcPath)
}

func TestWalkMissingRoot(t *testing.T) {
	err := walkTree(filepath.Join(t.TempDir(), "nope"), nil, nil, func(walkItem) error { return nil })
	require.Error(t, err)
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, filepath.Join(root, "f.txt"), []byte("x"), time.Now())

	var flag interrupt.Flag
	flag.Raise()

	err := walkTree(root, nil, &flag, func(walkItem) error {
		t.Fatal("callback must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, err, errs.ErrCancelled)
}

func TestIgnoredMatching(t *testing.T) {
	tests := []struct {
		name    string
		globs   []string
		srcPath string
		relPath string
		want    bool
	}{
		{"basename glob", []string{"*.tmp"}, "/src/a/b.tmp", "a/b.tmp", true},
		{"relative path glob", []string{"a/*.txt"}, "/src/a/b.txt", "a/b.txt", true},
		{"full path glob", []string{"/src/secret*"}, "/src/secret.key", "secret.key", true},
		{"directory name", []string{"node_modules"}, "/src/node_modules", "node_modules", true},
		{"no match", []string{"*.tmp"}, "/src/a/b.txt", "a/b.txt", false},
		{"no globs", nil, "/src/a", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ignored(tt.globs, tt.srcPath, tt.relPath))
		})
	}
}
