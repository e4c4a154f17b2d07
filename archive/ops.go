package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/section"
)

// ListEntry is the listing projection of one live entry.
type ListEntry struct {
	ID         uint32           `json:"id"`
	Flags      format.EntryFlag `json:"flags"`
	CompLevel  format.Level     `json:"comp_level"`
	UncompSize uint64           `json:"uncomp_size"`
	CompSize   uint64           `json:"comp_size"`
	Name       string           `json:"name"`
}

// List returns the live entries in index order.
func (a *Archive) List() []ListEntry {
	out := make([]ListEntry, 0, len(a.ix.Entries))
	for _, e := range a.ix.Entries {
		if !e.IsLive() {
			continue
		}
		out = append(out, ListEntry{
			ID:         e.ID,
			Flags:      e.Flags,
			CompLevel:  e.CompLevel,
			UncompSize: e.UncompSize,
			CompSize:   e.CompSize,
			Name:       e.Name,
		})
	}

	return out
}

// Info returns the full record of one live entry by id.
func (a *Archive) Info(id uint32) (*section.Entry, error) {
	e, err := a.ix.ByID(id)
	if err != nil {
		return nil, err
	}
	if !e.IsLive() {
		return nil, errs.ErrEntryNotFound
	}

	return e, nil
}

// Search returns the live entries whose name matches the shell-style
// wildcard pattern (`*`, `?`).
//
// Returns:
//   - []ListEntry: matches in index order
//   - error: errs.ErrInvalidPattern for an empty or malformed pattern
func (a *Archive) Search(pattern string) ([]ListEntry, error) {
	if pattern == "" {
		return nil, errs.ErrInvalidPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%q: %w", pattern, errs.ErrInvalidPattern)
	}

	// A bare pattern with no separator also matches against basenames, so
	// `*.txt` finds entries in subdirectories.
	matchBase := !strings.Contains(pattern, "/")

	var out []ListEntry
	for _, le := range a.List() {
		ok, _ := path.Match(pattern, le.Name)
		if !ok && matchBase {
			ok, _ = path.Match(pattern, path.Base(strings.TrimSuffix(le.Name, "/")))
		}
		if ok {
			out = append(out, le)
		}
	}

	return out, nil
}

// Rename replaces the name of the entry with the given id and commits the
// index. Renaming to a name that is already live is refused; renaming a
// nonexistent id is silently ignored.
func (a *Archive) Rename(id uint32, newName string) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	newName = strings.TrimLeft(path.Clean(newName), "/")
	if newName == "" || newName == "." {
		return errs.ErrInvalidPattern
	}

	e, err := a.ix.ByID(id)
	if err != nil || !e.IsLive() {
		return nil
	}
	if e.IsDir() && !strings.HasSuffix(newName, "/") {
		newName += "/"
	}
	if newName == e.Name {
		return nil
	}
	if a.ix.Lookup(newName) != nil {
		return fmt.Errorf("%s: %w", newName, errs.ErrEntryExists)
	}

	a.ix.Rename(e, newName)

	return a.finalize()
}

// Delete physically removes one entry: a rebuild with a one-element
// exclude set.
//
// Returns:
//   - error: errs.ErrEntryNotFound when no live entry has the id
func (a *Archive) Delete(id uint32) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	e, err := a.ix.ByID(id)
	if err != nil {
		return err
	}
	if !e.IsLive() {
		return errs.ErrEntryNotFound
	}

	return a.Rebuild(map[uint32]bool{id: true})
}

// MarkDeleted sets the DELETED flag on one live entry and commits the
// index in place, leaving the blob for the next compaction.
func (a *Archive) MarkDeleted(id uint32) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	e, err := a.ix.ByID(id)
	if err != nil {
		return err
	}
	if !e.IsLive() {
		return errs.ErrEntryNotFound
	}

	a.ix.MarkDeleted(e)

	return a.finalize()
}
