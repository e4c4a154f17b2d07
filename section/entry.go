package section

import (
	"strings"

	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/internal/binio"
)

// MetaPair is one (key, value) string pair of an entry's metadata list.
// The engine preserves pairs across rebuilds but never interprets them.
type MetaPair struct {
	Key   string
	Value string
}

// Entry is one index record: the metadata for a single archived file or
// directory. Directory entries carry a trailing "/" in Name and zero sizes
// and CRC.
//
// Record layout (little-endian):
//
//	u32 id
//	u16 name_len; name_len raw bytes
//	u8  flags
//	u8  comp_level
//	u64 data_offset
//	u64 comp_size
//	u64 uncomp_size
//	u32 crc32
//	u32 mode
//	u32 uid
//	u32 gid
//	u64 mtime
//	u32 meta_n; meta_n × { u16 klen; klen bytes; u16 vlen; vlen bytes }
type Entry struct {
	// ID is the stable numeric identifier, unique within the archive.
	ID uint32

	// Name is the archive-relative path. Leading slashes are stripped on
	// read so archived paths are always relative.
	Name string

	// Flags is the COMPRESSED/ENCRYPTED/DELETED bit set.
	Flags format.EntryFlag

	// CompLevel is the compression level the payload was written at.
	CompLevel format.Level

	// DataOffset and CompSize locate the payload blob in the data region.
	DataOffset uint64
	CompSize   uint64

	// UncompSize is the plaintext length.
	UncompSize uint64

	// CRC32 is the IEEE CRC of the uncompressed, unencrypted bytes.
	CRC32 uint32

	// POSIX attributes. Mode keeps the lower 12 permission bits.
	Mode  uint32
	UID   uint32
	GID   uint32
	MTime uint64

	// Meta is the ordered metadata list, opaque to the engine.
	Meta []MetaPair
}

// IsDir reports whether the entry names a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// IsLive reports whether the entry has not been logically deleted.
func (e *Entry) IsLive() bool {
	return !e.Flags.IsDeleted()
}

// AppendTo appends the entry's record encoding to buf and returns the
// extended slice.
func (e *Entry) AppendTo(buf []byte) []byte {
	buf = binio.AppendUint32(buf, e.ID)
	buf = binio.AppendString16(buf, e.Name)
	buf = binio.AppendUint8(buf, uint8(e.Flags))
	buf = binio.AppendUint8(buf, uint8(e.CompLevel))
	buf = binio.AppendUint64(buf, e.DataOffset)
	buf = binio.AppendUint64(buf, e.CompSize)
	buf = binio.AppendUint64(buf, e.UncompSize)
	buf = binio.AppendUint32(buf, e.CRC32)
	buf = binio.AppendUint32(buf, e.Mode)
	buf = binio.AppendUint32(buf, e.UID)
	buf = binio.AppendUint32(buf, e.GID)
	buf = binio.AppendUint64(buf, e.MTime)
	buf = binio.AppendUint32(buf, uint32(len(e.Meta))) //nolint: gosec
	for _, m := range e.Meta {
		buf = binio.AppendString16(buf, m.Key)
		buf = binio.AppendString16(buf, m.Value)
	}

	return buf
}

// ParseEntry decodes one entry record from r.
//
// Leading slashes in the stored name are stripped so archived paths are
// always relative.
//
// Returns:
//   - Entry: the decoded record
//   - error: errs.ErrTruncated if the record crosses the end of the data
func ParseEntry(r *binio.Reader) (Entry, error) {
	var e Entry
	var err error

	if e.ID, err = r.Uint32(); err != nil {
		return Entry{}, err
	}
	if e.Name, err = r.String16(); err != nil {
		return Entry{}, err
	}
	e.Name = strings.TrimLeft(e.Name, "/")

	flags, err := r.Uint8()
	if err != nil {
		return Entry{}, err
	}
	e.Flags = format.EntryFlag(flags)

	level, err := r.Uint8()
	if err != nil {
		return Entry{}, err
	}
	e.CompLevel = format.Level(level)
	if !e.CompLevel.Valid() {
		return Entry{}, errs.ErrInvalidIndex
	}

	if e.DataOffset, err = r.Uint64(); err != nil {
		return Entry{}, err
	}
	if e.CompSize, err = r.Uint64(); err != nil {
		return Entry{}, err
	}
	if e.UncompSize, err = r.Uint64(); err != nil {
		return Entry{}, err
	}
	if e.CRC32, err = r.Uint32(); err != nil {
		return Entry{}, err
	}
	if e.Mode, err = r.Uint32(); err != nil {
		return Entry{}, err
	}
	if e.UID, err = r.Uint32(); err != nil {
		return Entry{}, err
	}
	if e.GID, err = r.Uint32(); err != nil {
		return Entry{}, err
	}
	if e.MTime, err = r.Uint64(); err != nil {
		return Entry{}, err
	}

	metaN, err := r.Uint32()
	if err != nil {
		return Entry{}, err
	}
	if metaN > 0 {
		// Each pair takes at least four bytes of length prefixes, which
		// bounds meta_n on corrupt input before any allocation happens.
		if int64(metaN) > int64(r.Remaining())/4 {
			return Entry{}, errs.ErrInvalidIndex
		}
		e.Meta = make([]MetaPair, 0, metaN)
		for range metaN {
			var m MetaPair
			if m.Key, err = r.String16(); err != nil {
				return Entry{}, err
			}
			if m.Value, err = r.String16(); err != nil {
				return Entry{}, err
			}
			e.Meta = append(e.Meta, m)
		}
	}

	return e, nil
}
