package compress

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trinajstica/baar/format"
)

// ProbeSampleLimit bounds the prefix compressed by the auto-level probe.
const ProbeSampleLimit = 64 * 1024

// probeMinSize is the size below which compression is not worth the header
// overhead.
const probeMinSize = 1024

// compressedExts lists extensions whose content is already compressed;
// probing them is pointless.
var compressedExts = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
	"zip": {}, "gz": {}, "bz2": {}, "7z": {}, "xz": {},
	"rar": {}, "mp3": {}, "ogg": {}, "mp4": {}, "mkv": {},
	"pdf": {}, "woff": {}, "woff2": {}, "lz4": {}, "zst": {},
}

// ProbeLevel picks a compression level for a file from its name, size, and
// a content sample of at most ProbeSampleLimit bytes.
//
// The decision chain: empty files, known-compressed extensions, and files
// under 1 KiB are stored; otherwise the sample is deflated at best speed
// and the ratio decides between store, fast, and default.
//
// The function is pure, so probing the same file twice yields the same
// level.
func ProbeLevel(name string, size int64, sample []byte) format.Level {
	if size == 0 {
		return format.LevelStore
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := compressedExts[ext]; ok {
		return format.LevelStore
	}

	if size < probeMinSize {
		return format.LevelStore
	}

	if len(sample) > ProbeSampleLimit {
		sample = sample[:ProbeSampleLimit]
	}
	out, err := deflate(sample, 1)
	if err != nil {
		// The probe is advisory; an unexpected deflate failure just means
		// no compression.
		return format.LevelStore
	}

	ratio := float64(len(out)) / float64(len(sample))
	switch {
	case ratio > 0.95:
		return format.LevelStore
	case ratio > 0.6:
		return format.LevelFast
	default:
		return format.LevelDefault
	}
}

// AutoLevel probes the file at path and returns the level ProbeLevel picks
// for it.
func AutoLevel(path string) (format.Level, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return format.LevelStore, fmt.Errorf("probe %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return format.LevelStore, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return format.LevelStore, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()

	sampleLen := fi.Size()
	if sampleLen > ProbeSampleLimit {
		sampleLen = ProbeSampleLimit
	}
	sample := make([]byte, sampleLen)
	n, err := f.Read(sample)
	if err != nil && n == 0 {
		return format.LevelStore, fmt.Errorf("probe %s: %w", path, err)
	}

	return ProbeLevel(path, fi.Size(), sample[:n]), nil
}
