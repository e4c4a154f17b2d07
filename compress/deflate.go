package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/trinajstica/baar/errs"
)

// Candidate sets per archive level. Levels 1 and 2 are single-shot; levels
// 3 and 4 run every candidate and keep the smallest output. Go's flate does
// not expose zlib's windowBits/memLevel/strategy knobs, so the search space
// is expressed in the knobs it does have: the effort levels plus the
// Huffman-only strategy.
var (
	fastCandidates    = []int{flate.BestSpeed}
	defaultCandidates = []int{flate.DefaultCompression}
	searchCandidates  = []int{2, 6, flate.BestCompression, flate.HuffmanOnly}
	exhaustCandidates = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, flate.HuffmanOnly}
)

// DeflateCodec compresses payloads with raw DEFLATE streams, trying each of
// its candidate flate levels and keeping the smallest result.
type DeflateCodec struct {
	candidates []int
}

var _ Codec = (*DeflateCodec)(nil)

// NewDeflateCodec creates a codec over the given candidate flate levels.
// The slice must be non-empty; it is not copied.
func NewDeflateCodec(candidates []int) *DeflateCodec {
	return &DeflateCodec{candidates: candidates}
}

// Compress deflates data, returning the smallest output across the codec's
// candidate levels.
func (c *DeflateCodec) Compress(data []byte) ([]byte, error) {
	var best []byte
	for _, level := range c.candidates {
		out, err := deflate(data, level)
		if err != nil {
			return nil, err
		}
		if best == nil || len(out) < len(best) {
			best = out
		}
	}

	return best, nil
}

// Decompress inflates a raw DEFLATE stream.
func (c *DeflateCodec) Decompress(data []byte) ([]byte, error) {
	return Inflate(data, -1)
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data) / 2)

	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("deflate level %d: %w", level, err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("deflate write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("deflate close: %w", err)
	}

	return buf.Bytes(), nil
}

// Inflate decompresses a raw DEFLATE stream.
//
// If want is non-negative the output length must equal it exactly;
// a mismatch (or any inflate failure) yields errs.ErrDecompression.
func Inflate(data []byte, want int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	var out []byte
	var err error
	if want >= 0 {
		out = make([]byte, 0, want)
		buf := bytes.NewBuffer(out)
		_, err = io.Copy(buf, fr)
		out = buf.Bytes()
	} else {
		out, err = io.ReadAll(fr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecompression, err)
	}
	if want >= 0 && len(out) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", errs.ErrDecompression, len(out), want)
	}

	return out, nil
}
