package section

import (
	"github.com/trinajstica/baar/endian"
	"github.com/trinajstica/baar/errs"
)

// Header represents the fixed-size header at the start of the container.
//
// Layout (32 bytes, little-endian):
//
//	bytes 0..7   magic "BAARv1" + 2 zero pad bytes
//	bytes 8..15  IndexOffset (u64)
//	bytes 16..31 reserved; written as zero, ignored on read
type Header struct {
	// IndexOffset is the byte offset of the trailing index. Zero means the
	// archive has no index yet.
	IndexOffset uint64
}

// NewHeader creates a header for a fresh archive whose (empty) index starts
// right after the header.
func NewHeader() *Header {
	return &Header{IndexOffset: HeaderSize}
}

// Parse parses the header from a byte slice.
//
// Only the six-byte magic prefix is compared; the pad and reserved bytes are
// accepted with any content so newer writers can extend them.
//
// Returns:
//   - error: errs.ErrInvalidHeaderSize if data is shorter than 32 bytes,
//     errs.ErrBadMagic if the magic prefix does not match
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidHeaderSize
	}
	if [comparedSize]byte(data[:comparedSize]) != magic {
		return errs.ErrBadMagic
	}

	engine := endian.GetLittleEndianEngine()
	h.IndexOffset = engine.Uint64(data[MagicSize : MagicSize+8])

	return nil
}

// Bytes serializes the header into a fresh 32-byte slice with zeroed
// reserved bytes.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b, magic[:])

	engine := endian.GetLittleEndianEngine()
	engine.PutUint64(b[MagicSize:MagicSize+8], h.IndexOffset)

	return b
}

// ParseHeader parses a Header from a byte slice.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if err := h.Parse(data); err != nil {
		return Header{}, err
	}

	return h, nil
}
