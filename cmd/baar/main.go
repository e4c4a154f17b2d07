// Command baar is the command-line shell over the native archive engine.
//
// It translates flags into engine calls, routes non-native containers to
// the registered multi-format adapter, and maps engine errors to exit
// codes: 0 success, 1 failure, 2 partial failure, 130 cancelled.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	flag "github.com/spf13/pflag"

	"github.com/trinajstica/baar/adapter"
	"github.com/trinajstica/baar/archive"
	"github.com/trinajstica/baar/config"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/format"
	"github.com/trinajstica/baar/internal/interrupt"
	"github.com/trinajstica/baar/status"
	"github.com/trinajstica/baar/tempdir"
)

const usage = `usage: baar <command> [flags] <archive> [args]

commands:
  add        add files or trees to an archive (created when absent)
  extract    extract all entries (or one, with --name)
  list       list live entries
  test       verify CRCs of every live entry
  info       print one entry's metadata
  cat        write one entry's plaintext to stdout
  search     list entries matching a wildcard pattern
  rename     rename one entry by id
  remove     physically remove one entry by id
  mkdir      add a directory entry
  compact    rebuild the archive, dropping deleted entries
  recompress re-encode every live entry at a new level
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cfg := config.FromEnv()
	tmp := tempdir.NewRegistry()
	defer tmp.CleanupAll()

	p := &app{cfg: cfg, tmp: tmp, stdout: stdout, stderr: stderr}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "add":
		err = p.add(rest)
	case "extract":
		err = p.extract(rest)
	case "list":
		err = p.list(rest)
	case "test":
		err = p.test(rest)
	case "info":
		err = p.info(rest)
	case "cat":
		err = p.cat(rest)
	case "search":
		err = p.search(rest)
	case "rename":
		err = p.rename(rest)
	case "remove":
		err = p.remove(rest)
	case "mkdir":
		err = p.mkdir(rest)
	case "compact":
		err = p.compact(rest)
	case "recompress":
		err = p.recompress(rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "baar: unknown command %q\n", cmd)
		fmt.Fprint(stderr, usage)
		return 1
	}

	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	var exit *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exit):
		return exit.code
	case errors.Is(err, errs.ErrCancelled):
		fmt.Fprintln(stderr, "baar: cancelled")
		return 130
	case errors.Is(err, errs.ErrPartialFailure):
		fmt.Fprintf(stderr, "baar: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "baar: %v\n", err)
		return 1
	}
}

type app struct {
	cfg    config.Config
	tmp    *tempdir.Registry
	stdout io.Writer
	stderr io.Writer
}

// sink returns the progress sink for mutating commands.
func (p *app) sink() status.Sink {
	return status.NewLineSink(p.stderr)
}

func (p *app) add(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	password := fs.String("password", "", "encrypt payloads with this password")
	incremental := fs.Bool("incremental", false, "skip unchanged files, finalize in place")
	mirror := fs.Bool("mirror", false, "delete entries absent from the source")
	level := fs.String("level", "auto", "compression level 0..4 or auto")
	ignore := fs.StringArray("ignore", nil, "glob of paths to skip (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("add: need <archive> and at least one <source>[:dst][:level]")
	}

	archivePath := fs.Arg(0)
	sources := fs.Args()[1:]

	if ad := adapter.For(archivePath); ad != nil {
		lvl, err := parseLevel(*level)
		if err != nil {
			return err
		}

		return adapterExit(ad.AddFiles(archivePath, sources, lvl, *password, p.cfg.Verbose))
	}

	defLevel, err := parseLevel(*level)
	if err != nil {
		return err
	}

	jobs := make([]archive.Job, 0, len(sources))
	for _, src := range sources {
		job, err := parseJob(src, defLevel)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	ar, err := archive.OpenOrCreate(archivePath, p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	var cancel interrupt.Flag
	cancel.Notify()
	defer cancel.Restore()

	var spin *status.Spinner
	if p.cfg.Verbose {
		if f, ok := p.stderr.(*os.File); ok {
			spin = status.StartSpinner(f)
		}
	}
	defer spin.Stop()

	opts := []archive.AddOption{
		archive.WithPassword(*password),
		archive.WithIgnoreGlobs(*ignore...),
		archive.WithStatusSink(p.sink()),
		archive.WithCancel(&cancel),
	}
	if *incremental {
		opts = append(opts, archive.WithIncremental())
	}
	if *mirror {
		opts = append(opts, archive.WithMirror())
	}

	return ar.Add(jobs, opts...)
}

func (p *app) extract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	password := fs.String("password", "", "password for encrypted entries")
	name := fs.String("name", "", "extract only this entry")
	dest := fs.String("dest", ".", "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("extract: need exactly one <archive>")
	}
	archivePath := fs.Arg(0)

	if ad := adapter.For(archivePath); ad != nil {
		if *name != "" {
			return adapterExit(ad.ExtractSingle(archivePath, *name, *dest, *password))
		}

		return adapterExit(ad.Extract(archivePath, *dest, *password))
	}

	ar, err := archive.Open(archivePath, p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	if *name != "" {
		// Stage the entry in a private directory next to the archive, then
		// move it into place, so a failed extract never leaves a torn file
		// at the destination.
		staging, err := p.tmp.Create(archivePath, "baarx")
		if err != nil {
			return err
		}

		staged := filepath.Join(staging, filepath.Base(filepath.FromSlash(*name)))
		if err := ar.ExtractSingle(*name, staged, *password); err != nil {
			return err
		}

		final := filepath.Join(*dest, filepath.FromSlash(*name))
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			return err
		}

		return os.Rename(staged, final)
	}

	_, err = ar.ExtractAll(*dest, *password, p.sink())

	return err
}

func (p *app) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit a JSON array")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("list: need exactly one <archive>")
	}
	archivePath := fs.Arg(0)

	if ad := adapter.For(archivePath); ad != nil {
		return adapterExit(ad.List(archivePath, *jsonOut, p.cfg.Verbose))
	}

	ar, err := archive.Open(archivePath, p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return p.printEntries(ar.List(), *jsonOut)
}

func (p *app) printEntries(entries []archive.ListEntry, jsonOut bool) error {
	if jsonOut {
		out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(p.stdout, string(out))

		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(p.stdout, "%6d  %s  %-10s  %10s  %10s  %s\n",
			e.ID, e.Flags, e.CompLevel,
			humanize.Bytes(e.UncompSize), humanize.Bytes(e.CompSize), e.Name)
	}

	return nil
}

func (p *app) test(args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	password := fs.String("password", "", "password for encrypted entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("test: need exactly one <archive>")
	}
	archivePath := fs.Arg(0)

	if ad := adapter.For(archivePath); ad != nil {
		return adapterExit(ad.Test(archivePath, *password))
	}

	ar, err := archive.Open(archivePath, p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	_, err = ar.Test(*password, p.sink())

	return err
}

func (p *app) info(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("info: need <archive> and <id>")
	}

	id, err := parseID(fs.Arg(1))
	if err != nil {
		return err
	}

	ar, err := archive.Open(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	e, err := ar.Info(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "id:          %d\n", e.ID)
	fmt.Fprintf(p.stdout, "name:        %s\n", e.Name)
	fmt.Fprintf(p.stdout, "flags:       %s\n", e.Flags)
	fmt.Fprintf(p.stdout, "level:       %s\n", e.CompLevel)
	fmt.Fprintf(p.stdout, "size:        %s (%d bytes)\n", humanize.Bytes(e.UncompSize), e.UncompSize)
	fmt.Fprintf(p.stdout, "stored:      %s (%d bytes)\n", humanize.Bytes(e.CompSize), e.CompSize)
	fmt.Fprintf(p.stdout, "crc32:       %08x\n", e.CRC32)
	fmt.Fprintf(p.stdout, "mode:        %04o\n", e.Mode)
	fmt.Fprintf(p.stdout, "uid/gid:     %d/%d\n", e.UID, e.GID)
	fmt.Fprintf(p.stdout, "mtime:       %d\n", e.MTime)
	for _, m := range e.Meta {
		fmt.Fprintf(p.stdout, "meta:        %s=%s\n", m.Key, m.Value)
	}

	return nil
}

func (p *app) cat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	password := fs.String("password", "", "password for encrypted entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("cat: need <archive> and <name>")
	}

	ar, err := archive.Open(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Cat(fs.Arg(1), *password, p.stdout)
}

func (p *app) search(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit a JSON array")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("search: need <archive> and <pattern>")
	}

	ar, err := archive.Open(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	matches, err := ar.Search(fs.Arg(1))
	if err != nil {
		return err
	}

	return p.printEntries(matches, *jsonOut)
}

func (p *app) rename(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("rename: need <archive>, <id>, and <new-name>")
	}

	id, err := parseID(fs.Arg(1))
	if err != nil {
		return err
	}

	ar, err := archive.OpenRW(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Rename(id, fs.Arg(2))
}

func (p *app) remove(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("remove: need <archive> and <id>")
	}

	id, err := parseID(fs.Arg(1))
	if err != nil {
		return err
	}

	ar, err := archive.OpenRW(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Delete(id)
}

func (p *app) mkdir(args []string) error {
	fs := flag.NewFlagSet("mkdir", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("mkdir: need <archive> and <name>")
	}

	ar, err := archive.OpenRW(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Mkdir(fs.Arg(1), 0o755)
}

func (p *app) compact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("compact: need exactly one <archive>")
	}

	ar, err := archive.OpenRW(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Rebuild(nil)
}

func (p *app) recompress(args []string) error {
	fs := flag.NewFlagSet("recompress", flag.ContinueOnError)
	level := fs.String("level", "2", "compression level 0..4")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("recompress: need exactly one <archive>")
	}

	lvl, err := parseLevel(*level)
	if err != nil {
		return err
	}
	if lvl == format.LevelAuto {
		return fmt.Errorf("recompress: %w: auto is not a storable level", errs.ErrInvalidLevel)
	}

	ar, err := archive.OpenRW(fs.Arg(0), p.cfg)
	if err != nil {
		return err
	}
	defer ar.Close()

	return ar.Recompress(lvl, p.sink())
}

// parseJob splits the CLI's src[:dst][:level] sugar into a Job. A trailing
// numeric component is a level; a non-numeric second component is an
// archive-side override.
func parseJob(spec string, defLevel format.Level) (archive.Job, error) {
	job := archive.Job{Level: defLevel}

	parts := strings.Split(spec, ":")
	job.SourceRoot = parts[0]
	if job.SourceRoot == "" {
		return archive.Job{}, fmt.Errorf("job %q: empty source", spec)
	}

	switch len(parts) {
	case 1:
	case 2:
		if lvl, err := parseLevel(parts[1]); err == nil {
			job.Level = lvl
		} else {
			job.ArchiveOverride = parts[1]
		}
	case 3:
		job.ArchiveOverride = parts[1]
		lvl, err := parseLevel(parts[2])
		if err != nil {
			return archive.Job{}, fmt.Errorf("job %q: %w", spec, err)
		}
		job.Level = lvl
	default:
		return archive.Job{}, fmt.Errorf("job %q: too many components", spec)
	}

	return job, nil
}

func parseLevel(s string) (format.Level, error) {
	if s == "auto" {
		return format.LevelAuto, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || !format.Level(n).Valid() {
		return 0, fmt.Errorf("level %q: %w", s, errs.ErrInvalidLevel)
	}

	return format.Level(n), nil
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("id %q: not a number", s)
	}

	return uint32(n), nil
}

// exitError propagates an adapter's exit code unchanged.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("adapter exited with code %d", e.code)
}

func adapterExit(code int) error {
	if code == 0 {
		return nil
	}

	return &exitError{code: code}
}
