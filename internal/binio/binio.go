// Package binio implements the fixed-width little-endian primitives the
// archive format is built from: u8/u16/u32/u64 fields, raw byte runs, and
// length-prefixed strings (u16 byte length, raw bytes, no terminator).
//
// Decoding goes through a Reader that tracks its offset in a byte slice and
// reports errs.ErrTruncated for any read crossing the end of the data.
// Encoding uses append-style helpers so index records can be built without
// intermediate scratch buffers.
package binio

import (
	"github.com/trinajstica/baar/endian"
	"github.com/trinajstica/baar/errs"
)

var engine = endian.GetLittleEndianEngine()

// Reader decodes little-endian primitives from a byte slice.
//
// The zero value is not usable; construct with NewReader. Bytes aliases the
// underlying slice; String16 copies out of it.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of bytes left to read.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// take reserves n bytes from the current offset.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errs.ErrTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads a little-endian u16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return engine.Uint16(b), nil
}

// Uint32 reads a little-endian u32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return engine.Uint32(b), nil
}

// Uint64 reads a little-endian u64.
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}

	return engine.Uint64(b), nil
}

// Bytes reads n raw bytes. The returned slice aliases the Reader's data and
// must not be modified.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// String16 reads a u16 length prefix followed by that many raw bytes.
// The bytes are copied into a new string; no UTF-8 validation is performed.
func (r *Reader) String16() (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// AppendUint8 appends one byte to buf.
func AppendUint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// AppendUint16 appends a little-endian u16 to buf.
func AppendUint16(buf []byte, v uint16) []byte {
	return engine.AppendUint16(buf, v)
}

// AppendUint32 appends a little-endian u32 to buf.
func AppendUint32(buf []byte, v uint32) []byte {
	return engine.AppendUint32(buf, v)
}

// AppendUint64 appends a little-endian u64 to buf.
func AppendUint64(buf []byte, v uint64) []byte {
	return engine.AppendUint64(buf, v)
}

// AppendString16 appends a u16 byte-length prefix followed by the raw bytes
// of s. Strings longer than 65535 bytes are silently truncated to their
// first 65535 bytes so the prefix and the body stay consistent.
func AppendString16(buf []byte, s string) []byte {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	buf = engine.AppendUint16(buf, uint16(len(s))) //nolint: gosec
	return append(buf, s...)
}
