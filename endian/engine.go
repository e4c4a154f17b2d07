// Package endian provides the byte order used by the baar archive format.
//
// The on-disk format is little-endian throughout, so the package exposes a
// single Engine value that combines
// encoding/binary's ByteOrder and AppendByteOrder interfaces. Using the
// AppendByteOrder half avoids the scratch-buffer allocation of PutUintXX
// when building index records:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint64(buf, entry.DataOffset)
//
// All functions are safe for concurrent use; the returned engine is
// immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// Engine combines ByteOrder and AppendByteOrder from encoding/binary into a
// single interface. It is satisfied by binary.LittleEndian, which is the
// only order the archive format uses.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the engine for the archive's on-disk order.
func GetLittleEndianEngine() Engine {
	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host stores integers in the same
// order as the archive format. The engine never depends on this, but tools
// may use it to pick a fast path.
func IsNativeLittleEndian() bool {
	// 0x0100 is 256. On a little-endian host the LSB (0x00) comes first.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))

	return b[0] == 0x00
}
