// Package tempdir manages the private temporary directories used for
// staged extraction (for example the GUI's drag-out path).
//
// Directories are created next to the archive when possible, so renames of
// extracted files stay on one filesystem, and fall back to the system temp
// directory (os.TempDir, normally /tmp) otherwise.
// Every created directory is recorded in a Registry owned by the caller;
// the caller runs CleanupAll on process exit to remove whatever is left.
package tempdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxAttempts bounds the uniqueness probing per candidate location.
const maxAttempts = 100

// Registry tracks every temp directory created through it.
//
// The engine's single-threaded operation model means a process usually owns
// exactly one Registry; the mutex exists so a GUI shell can share it across
// its own goroutines.
type Registry struct {
	mu   sync.Mutex
	dirs []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create makes a fresh private directory (mode 0700) for staging files
// related to the archive at archivePath.
//
// The first candidate is `<dir-of-archive>/.<tag>_<pid>_<nn>`; if that
// location is unusable (read-only filesystem, permissions, missing parent)
// the fallback is `<os.TempDir()>/<tag>_<pid>_<nn>` (normally under /tmp).
// Up to 100 suffixes are probed per location.
func (r *Registry) Create(archivePath, tag string) (string, error) {
	pid := os.Getpid()

	near := filepath.Dir(archivePath)
	if dir, err := r.tryCreate(near, "."+tag, pid); err == nil {
		return dir, nil
	}

	dir, err := r.tryCreate(os.TempDir(), tag, pid)
	if err != nil {
		return "", fmt.Errorf("create temp directory for %s: %w", archivePath, err)
	}

	return dir, nil
}

func (r *Registry) tryCreate(parent, prefix string, pid int) (string, error) {
	var lastErr error
	for nn := range maxAttempts {
		dir := filepath.Join(parent, fmt.Sprintf("%s_%d_%02d", prefix, pid, nn))
		err := os.Mkdir(dir, 0o700)
		if err == nil {
			r.mu.Lock()
			r.dirs = append(r.dirs, dir)
			r.mu.Unlock()

			return dir, nil
		}
		if os.IsExist(err) {
			lastErr = err
			continue
		}

		// Permission or missing-parent errors will not change with another
		// suffix; give the fallback location a chance instead.
		return "", err
	}

	return "", lastErr
}

// Dirs returns a copy of the currently registered directories.
func (r *Registry) Dirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.dirs...)
}

// CleanupAll recursively removes every registered directory. Removal errors
// are ignored; the directories live under throwaway locations.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	dirs := r.dirs
	r.dirs = nil
	r.mu.Unlock()

	for _, dir := range dirs {
		os.RemoveAll(dir)
	}
}
