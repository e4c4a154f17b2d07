// Package index implements the in-memory index of a baar archive: the
// ordered entry list, the next-id counter, and the name-lookup acceleration
// used by the streaming writer.
//
// The index is authoritative only for the duration of one engine operation.
// It is decoded from the container's trailing index section, mutated in
// memory, and re-encoded during finalization.
package index

import (
	"fmt"

	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/internal/binio"
	"github.com/trinajstica/baar/internal/hash"
	"github.com/trinajstica/baar/section"
)

// Index holds the entries of one archive in insertion order plus the
// counter for the next entry id.
//
// A secondary map keyed by the xxhash64 of the entry name accelerates the
// writer's same-name lookups. Buckets hold slices so two names that collide
// on the hash still resolve correctly. Only live entries are indexed by
// name; deleted entries remain in the ordered list until the next rebuild.
type Index struct {
	// Entries is the ordered entry list, live and deleted alike.
	Entries []*section.Entry

	// NextID is strictly greater than every entry's id.
	NextID uint32

	byName map[uint64][]*section.Entry
}

// New creates an empty index whose first allocated id is 1.
func New() *Index {
	return &Index{
		NextID: 1,
		byName: make(map[uint64][]*section.Entry),
	}
}

// Decode parses an index section (u32 entry count followed by that many
// records) and rebuilds the name lookup.
//
// Returns:
//   - *Index: decoded index with NextID = max(id)+1, or 1 when empty
//   - error: errs.ErrTruncated or errs.ErrInvalidIndex on malformed input
func Decode(data []byte) (*Index, error) {
	r := binio.NewReader(data)

	n, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("index count: %w", err)
	}

	ix := New()
	ix.Entries = make([]*section.Entry, 0, min(int(n), 1024))
	for i := range n {
		e, err := section.ParseEntry(r)
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		ix.Entries = append(ix.Entries, &e)
		if e.ID >= ix.NextID {
			ix.NextID = e.ID + 1
		}
	}

	ix.rebuildLookup()

	return ix, nil
}

// AppendEncode appends the index section encoding (count plus records) to
// buf and returns the extended slice.
func (ix *Index) AppendEncode(buf []byte) []byte {
	buf = binio.AppendUint32(buf, uint32(len(ix.Entries))) //nolint: gosec
	for _, e := range ix.Entries {
		buf = e.AppendTo(buf)
	}

	return buf
}

// AllocID returns a fresh entry id and advances the counter.
func (ix *Index) AllocID() uint32 {
	id := ix.NextID
	ix.NextID++

	return id
}

// Add appends an entry to the index and registers its name lookup.
// The entry's ID must already be assigned (see AllocID) and greater than
// any existing id.
func (ix *Index) Add(e *section.Entry) {
	ix.Entries = append(ix.Entries, e)
	if e.ID >= ix.NextID {
		ix.NextID = e.ID + 1
	}
	if e.IsLive() {
		key := hash.ID(e.Name)
		ix.byName[key] = append(ix.byName[key], e)
	}
}

// Lookup returns the live entry with the given name, or nil.
func (ix *Index) Lookup(name string) *section.Entry {
	for _, e := range ix.byName[hash.ID(name)] {
		if e.Name == name && e.IsLive() {
			return e
		}
	}

	return nil
}

// ByID returns the entry with the given id, live or deleted.
//
// Returns:
//   - *section.Entry: the entry
//   - error: errs.ErrEntryNotFound if no entry has the id
func (ix *Index) ByID(id uint32) (*section.Entry, error) {
	for _, e := range ix.Entries {
		if e.ID == id {
			return e, nil
		}
	}

	return nil, errs.ErrEntryNotFound
}

// MarkDeleted sets the entry's DELETED flag and removes it from the name
// lookup. The record itself stays in the ordered list until the next
// rebuild.
func (ix *Index) MarkDeleted(e *section.Entry) {
	if e.Flags.IsDeleted() {
		return
	}
	e.Flags |= format.FlagDeleted
	ix.unindex(e)
}

// Rename changes the entry's name, keeping the lookup consistent.
func (ix *Index) Rename(e *section.Entry, newName string) {
	if e.IsLive() {
		ix.unindex(e)
	}
	e.Name = newName
	if e.IsLive() {
		key := hash.ID(e.Name)
		ix.byName[key] = append(ix.byName[key], e)
	}
}

// LiveCount returns the number of entries without the DELETED flag.
func (ix *Index) LiveCount() int {
	n := 0
	for _, e := range ix.Entries {
		if e.IsLive() {
			n++
		}
	}

	return n
}

func (ix *Index) unindex(e *section.Entry) {
	key := hash.ID(e.Name)
	bucket := ix.byName[key]
	for i, cand := range bucket {
		if cand == e {
			ix.byName[key] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(ix.byName[key]) == 0 {
		delete(ix.byName, key)
	}
}

// rebuildLookup reconstructs the name map from scratch. It runs on every
// decode, mirroring the rule that the lookup is rebuilt whenever the index
// is reloaded.
func (ix *Index) rebuildLookup() {
	ix.byName = make(map[uint64][]*section.Entry, len(ix.Entries))
	for _, e := range ix.Entries {
		if e.IsLive() {
			key := hash.ID(e.Name)
			ix.byName[key] = append(ix.byName[key], e)
		}
	}
}
