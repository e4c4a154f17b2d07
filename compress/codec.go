package compress

import (
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
)

// Compressor compresses an entry payload.
//
// Memory management:
//   - Returned slice is owned by the caller; the store codec returns the
//     input slice itself, deflate codecs return a new allocation
//   - Input slice is not modified
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	// The result may be larger than the input; store-fallback is the
	// caller's decision (see Pack).
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores an entry payload.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original
	// bytes. It returns an error if the data is corrupted or was not
	// produced by the matching Compressor.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CodecForLevel returns the Codec implementing one of the archive's
// compression levels.
//
// Returns:
//   - Codec: store codec for level 0, a deflate codec otherwise
//   - error: errs.ErrInvalidLevel for levels outside 0..4
func CodecForLevel(level format.Level) (Codec, error) {
	switch level {
	case format.LevelStore:
		return NewNoOpCodec(), nil
	case format.LevelFast:
		return NewDeflateCodec(fastCandidates), nil
	case format.LevelDefault:
		return NewDeflateCodec(defaultCandidates), nil
	case format.LevelSearch:
		return NewDeflateCodec(searchCandidates), nil
	case format.LevelExhaust:
		return NewDeflateCodec(exhaustCandidates), nil
	default:
		return nil, errs.ErrInvalidLevel
	}
}

// Pack compresses data at the requested level and applies the store
// fallback: the compressed form is kept only when it is strictly smaller
// than the input.
//
// Returns:
//   - []byte: the payload to store (compressed output or the input itself)
//   - bool: true if the payload is compressed
//   - error: errs.ErrInvalidLevel, or a compression failure
func Pack(data []byte, level format.Level) ([]byte, bool, error) {
	if level == format.LevelStore || len(data) == 0 {
		return data, false, nil
	}

	codec, err := CodecForLevel(level)
	if err != nil {
		return nil, false, err
	}

	out, err := codec.Compress(data)
	if err != nil {
		return nil, false, err
	}
	if len(out) >= len(data) {
		return data, false, nil
	}

	return out, true, nil
}
