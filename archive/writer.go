package archive

import (
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/trinajstica/baar/compress"
	"github.com/trinajstica/baar/crypt"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/internal/interrupt"
	"github.com/trinajstica/baar/internal/options"
	"github.com/trinajstica/baar/section"
	"github.com/trinajstica/baar/status"
)

// Job describes one add request: a source tree (or single file), an
// optional override for the archive-side path, and a compression level
// (possibly format.LevelAuto).
type Job struct {
	// SourceRoot is the file or directory to add.
	SourceRoot string

	// ArchiveOverride replaces the archive-side prefix. For a single-file
	// job it is the exact archive path; for a tree it prefixes every
	// relative path. Empty means "use the source-relative path".
	ArchiveOverride string

	// Level is the compression level for this job's files.
	Level format.Level
}

// AddOptions configures a streaming add operation.
type AddOptions struct {
	password    string
	incremental bool
	mirror      bool
	globs       []string
	sink        status.Sink
	cancel      *interrupt.Flag
}

// AddOption configures Add via the functional-option pattern.
type AddOption = options.Option[*AddOptions]

// WithPassword encrypts every added payload with the given password.
func WithPassword(password string) AddOption {
	return options.NoError(func(o *AddOptions) { o.password = password })
}

// WithIncremental skips files whose size, mtime, and permission bits match
// the live entry of the same name, and finalizes in place (deleted entries
// stay in the index until the next compaction).
func WithIncremental() AddOption {
	return options.NoError(func(o *AddOptions) { o.incremental = true })
}

// WithMirror marks live entries absent from the source tree as deleted, so
// the archive mirrors the tree. Mirror implies the incremental matching
// rules for unchanged files.
func WithMirror() AddOption {
	return options.NoError(func(o *AddOptions) { o.mirror = true })
}

// WithIgnoreGlobs skips any path matching one of the shell globs. Each glob
// is tested against the full source path, the archive-relative path, and
// the basename.
func WithIgnoreGlobs(globs ...string) AddOption {
	return options.NoError(func(o *AddOptions) { o.globs = append(o.globs, globs...) })
}

// WithStatusSink routes progress lines to sink.
func WithStatusSink(sink status.Sink) AddOption {
	return options.NoError(func(o *AddOptions) { o.sink = sink })
}

// WithCancel polls the flag between entries and stops cooperatively once it
// is raised. The archive is finalized before Add returns errs.ErrCancelled.
func WithCancel(flag *interrupt.Flag) AddOption {
	return options.NoError(func(o *AddOptions) { o.cancel = flag })
}

// addState carries one Add invocation's bookkeeping.
type addState struct {
	AddOptions

	// existing ids that were live when the operation started, for mirror.
	existing map[uint32]*section.Entry

	// seen ids among existing entries encountered in the source.
	seen map[uint32]bool

	// toRemove collects superseded and mirror-removed ids for the
	// compaction pass of non-incremental adds.
	toRemove map[uint32]bool

	// dirty records whether the in-memory index diverged from disk; a
	// fully-skipped incremental run commits nothing.
	dirty bool

	failed int
}

// Add streams the given jobs into the archive.
//
// Behavior follows the container's append-only discipline: payloads are
// appended at end-of-file, then the updated index is appended and the
// header repointed. With WithIncremental the archive is finalized in place;
// otherwise a compaction pass physically removes superseded entries
// afterwards.
//
// Per-file failures are emitted to the sink and counted, and the operation
// continues; Add then returns errs.ErrPartialFailure. Cancellation still
// finalizes the entries already added and returns errs.ErrCancelled.
func (a *Archive) Add(jobs []Job, opts ...AddOption) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	st := &addState{
		existing: make(map[uint32]*section.Entry),
		seen:     make(map[uint32]bool),
		toRemove: make(map[uint32]bool),
	}
	if err := options.Apply(&st.AddOptions, opts...); err != nil {
		return err
	}
	if st.sink == nil {
		st.sink = status.Discard
	}
	if st.password == "" {
		st.password = a.cfg.Password
	}

	for _, job := range jobs {
		if job.Level != format.LevelAuto && !job.Level.Valid() {
			return fmt.Errorf("job %s: level %d: %w", job.SourceRoot, job.Level, errs.ErrInvalidLevel)
		}
	}

	if st.mirror {
		for _, e := range a.ix.Entries {
			if e.IsLive() {
				st.existing[e.ID] = e
			}
		}
	}

	cancelled := false
	for _, job := range jobs {
		err := walkTree(job.SourceRoot, st.globs, st.cancel, func(item walkItem) error {
			return a.processFile(item, &job, st)
		})
		if errors.Is(err, errs.ErrCancelled) || (err == nil && st.cancel != nil && st.cancel.Raised()) {
			cancelled = true
			break
		}
		if err != nil {
			// Walk errors abort the current job only; the archive must
			// still be finalized over what was added.
			st.failed++
			st.sink.Emit(fmt.Sprintf("FAIL %s: %v", job.SourceRoot, err))
		}
	}

	if st.mirror && !cancelled {
		a.mirrorSweep(st)
	}

	if st.dirty {
		if err := a.finalize(); err != nil {
			return err
		}
	}

	if cancelled {
		return errs.ErrCancelled
	}

	if !st.incremental && len(st.toRemove) > 0 {
		if err := a.Rebuild(st.toRemove); err != nil {
			return err
		}
	}

	if st.failed > 0 {
		return fmt.Errorf("%d files: %w", st.failed, errs.ErrPartialFailure)
	}

	return nil
}

// processFile adds one regular file, superseding any live entry of the
// same archive path.
func (a *Archive) processFile(item walkItem, job *Job, st *addState) error {
	if st.cancel != nil && st.cancel.Raised() {
		return errs.ErrCancelled
	}

	archivePath := archivePathFor(item, job)

	prior := a.ix.Lookup(archivePath)
	if prior != nil && (st.incremental || st.mirror) && unchanged(prior, item.info) {
		st.sink.Emit(fmt.Sprintf("Skipping unchanged %s", archivePath))
		st.seen[prior.ID] = true

		return nil
	}
	if prior != nil {
		st.toRemove[prior.ID] = true
		st.seen[prior.ID] = true
		a.ix.MarkDeleted(prior)
		st.dirty = true
	}

	if err := a.appendFile(item, archivePath, job.Level, st); err != nil {
		st.failed++
		st.sink.Emit(fmt.Sprintf("FAIL %s: %v", archivePath, err))
	}

	return nil
}

// appendFile reads, compresses, encrypts, and appends one file's payload,
// then records the new index entry.
func (a *Archive) appendFile(item walkItem, archivePath string, level format.Level, st *addState) error {
	size := item.info.Size()
	if size > maxInt {
		return fmt.Errorf("%s (%d bytes): %w", item.srcPath, size, errs.ErrFileTooLarge)
	}

	data, err := os.ReadFile(item.srcPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.srcPath, err)
	}

	crc := crc32.ChecksumIEEE(data)

	if level == format.LevelAuto {
		sample := data
		if len(sample) > compress.ProbeSampleLimit {
			sample = sample[:compress.ProbeSampleLimit]
		}
		level = compress.ProbeLevel(item.srcPath, int64(len(data)), sample)
	}

	payload, compressed, err := compress.Pack(data, level)
	if err != nil {
		return fmt.Errorf("compress %s: %w", item.srcPath, err)
	}

	var flags format.EntryFlag
	compLevel := format.LevelStore
	if compressed {
		flags |= format.FlagCompressed
		compLevel = level
	}
	if st.password != "" {
		crypt.ApplyMode(payload, st.password, a.cfg.LegacyXOR)
		flags |= format.FlagEncrypted
	}

	dataOffset, err := a.endOfData()
	if err != nil {
		return err
	}
	if _, err := a.file.Write(payload); err != nil {
		// Never leave a torn blob reachable: rewind end-of-file to the
		// last good offset before reporting the failure.
		if terr := a.file.Truncate(dataOffset); terr != nil {
			return fmt.Errorf("write payload %s: %v (truncate failed: %w)", archivePath, err, terr)
		}

		return fmt.Errorf("write payload %s: %w", archivePath, err)
	}

	uid, gid, mode := fileStat(item.info)
	e := &section.Entry{
		ID:         a.ix.AllocID(),
		Name:       archivePath,
		Flags:      flags,
		CompLevel:  compLevel,
		DataOffset: uint64(dataOffset), //nolint: gosec
		CompSize:   uint64(len(payload)),
		UncompSize: uint64(len(data)),
		CRC32:      crc,
		Mode:       mode,
		UID:        uid,
		GID:        gid,
		MTime:      uint64(item.info.ModTime().Unix()), //nolint: gosec
	}
	a.ix.Add(e)
	st.dirty = true

	saved := 0
	if len(data) > 0 {
		saved = 100 - int(uint64(len(payload))*100/uint64(len(data)))
	}
	display := path.Base(archivePath)
	if a.cfg.Verbose {
		display = item.srcPath
	}
	st.sink.Emit(fmt.Sprintf("%s (%d%% saved)", display, saved))

	return nil
}

// mirrorSweep marks live entries never seen during the walk as deleted.
func (a *Archive) mirrorSweep(st *addState) {
	for id, e := range st.existing {
		if st.seen[id] || !e.IsLive() {
			continue
		}
		if a.cfg.DebugMirror {
			st.sink.Emit(fmt.Sprintf("mirror: removing %s (absent from source)", e.Name))
		}
		st.toRemove[id] = true
		a.ix.MarkDeleted(e)
		st.dirty = true
		st.sink.Emit(fmt.Sprintf("Removing %s", e.Name))
	}
}

// Mkdir adds an explicit directory entry. The stored name always carries a
// trailing slash.
//
// Returns:
//   - error: errs.ErrEntryExists when a live entry already has the name
func (a *Archive) Mkdir(name string, mode uint32) error {
	if err := a.requireWritable(); err != nil {
		return err
	}

	if name == "" {
		return errs.ErrInvalidPattern
	}
	name = path.Clean(name)
	if name == "." || name == "/" {
		return errs.ErrInvalidPattern
	}
	name = name + "/"

	if a.ix.Lookup(name) != nil {
		return fmt.Errorf("%s: %w", name, errs.ErrEntryExists)
	}

	a.ix.Add(&section.Entry{
		ID:    a.ix.AllocID(),
		Name:  name,
		Mode:  mode & 0o7777,
		MTime: nowUnix(),
	})

	return a.finalize()
}

// archivePathFor resolves the archive-side path of a walked file.
func archivePathFor(item walkItem, job *Job) string {
	rel := filepath.ToSlash(item.relPath)
	if job.ArchiveOverride == "" {
		return rel
	}

	fi, err := os.Stat(job.SourceRoot)
	if err == nil && !fi.IsDir() {
		// Single-file job: the override is the exact archive path.
		return path.Clean(job.ArchiveOverride)
	}

	return path.Join(job.ArchiveOverride, rel)
}

// unchanged reports whether a live entry still matches the on-disk file by
// size, mtime, and permission bits.
func unchanged(e *section.Entry, fi os.FileInfo) bool {
	_, _, mode := fileStat(fi)

	return e.UncompSize == uint64(fi.Size()) && //nolint: gosec
		e.MTime == uint64(fi.ModTime().Unix()) && //nolint: gosec
		e.Mode == mode
}

func nowUnix() uint64 {
	return uint64(time.Now().Unix()) //nolint: gosec
}

// fileStat extracts uid, gid, and the lower 12 mode bits from the stat
// result where the platform provides them.
func fileStat(fi os.FileInfo) (uid, gid, mode uint32) {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return st.Uid, st.Gid, uint32(st.Mode) & 0o7777
	}

	return 0, 0, uint32(fi.Mode().Perm()) & 0o7777
}
