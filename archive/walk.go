package archive

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/internal/interrupt"
)

// walkItem is one file yielded by the directory walk.
type walkItem struct {
	// srcPath is the on-disk path of the regular file.
	srcPath string

	// relPath is the slash-separated path relative to the walk root.
	relPath string

	// info is the file's stat result.
	info os.FileInfo
}

// walkTree performs a depth-first walk of root using an explicit stack (no
// recursion), invoking fn for every regular file that survives the ignore
// globs. Directory entries are visited in name order, so the yield order is
// deterministic.
//
// The cancellation flag is polled between entries; once raised, the walk
// stops and returns errs.ErrCancelled.
//
// If root itself is a regular file, fn is invoked once for it.
func walkTree(root string, globs []string, flag *interrupt.Flag, fn func(walkItem) error) error {
	rootInfo, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	if !rootInfo.IsDir() {
		item := walkItem{srcPath: root, relPath: filepath.Base(root), info: rootInfo}
		if ignored(globs, item.srcPath, item.relPath) {
			return nil
		}

		return fn(item)
	}

	type frame struct {
		dir string // on-disk directory path
		rel string // slash-separated path relative to root ("" at the top)
	}

	stack := []frame{{dir: root}}
	for len(stack) > 0 {
		if flag != nil && flag.Raised() {
			return errs.ErrCancelled
		}

		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirents, err := os.ReadDir(fr.dir)
		if err != nil {
			return fmt.Errorf("walk %s: %w", fr.dir, err)
		}
		sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })

		// Push directories in reverse so the stack pops them in name order.
		var subdirs []frame

		for _, de := range dirents {
			if flag != nil && flag.Raised() {
				return errs.ErrCancelled
			}

			srcPath := filepath.Join(fr.dir, de.Name())
			rel := de.Name()
			if fr.rel != "" {
				rel = fr.rel + "/" + de.Name()
			}

			if ignored(globs, srcPath, rel) {
				continue
			}

			if de.IsDir() {
				subdirs = append(subdirs, frame{dir: srcPath, rel: rel})
				continue
			}

			info, err := de.Info()
			if err != nil {
				return fmt.Errorf("walk %s: %w", srcPath, err)
			}
			if !info.Mode().IsRegular() {
				// Symlinks, devices, and sockets are out of scope.
				continue
			}

			if err := fn(walkItem{srcPath: srcPath, relPath: rel, info: info}); err != nil {
				return err
			}
		}

		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return nil
}

// ignored reports whether any glob matches the full source path, the
// archive-relative path, or the basename.
func ignored(globs []string, srcPath, relPath string) bool {
	base := path.Base(relPath)
	for _, g := range globs {
		if ok, _ := filepath.Match(g, srcPath); ok {
			return true
		}
		if ok, _ := path.Match(g, relPath); ok {
			return true
		}
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}

	return false
}
