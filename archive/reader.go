package archive

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/trinajstica/baar/compress"
	"github.com/trinajstica/baar/crypt"
	"github.com/trinajstica/baar/errs"
	"github.com/trinajstica/baar/internal/pool"
	"github.com/trinajstica/baar/section"
	"github.com/trinajstica/baar/status"
)

// ReadEntry retrieves one entry's plaintext by id.
//
// The payload is read from the data region, decrypted when the entry is
// encrypted (with the given password, or the config default when empty),
// inflated when compressed, and finally CRC-checked.
//
// Returns:
//   - []byte: the plaintext bytes (empty for directory entries)
//   - error: errs.ErrEntryNotFound for missing or deleted ids,
//     errs.ErrDecryptFailed on CRC mismatch for encrypted entries,
//     errs.ErrCorruptEntry on CRC or size mismatch otherwise
func (a *Archive) ReadEntry(id uint32, password string) ([]byte, error) {
	e, err := a.ix.ByID(id)
	if err != nil {
		return nil, err
	}
	if !e.IsLive() {
		return nil, errs.ErrEntryNotFound
	}

	return a.readLive(e, password)
}

// ReadEntryByName retrieves one entry's plaintext by archive path.
func (a *Archive) ReadEntryByName(name, password string) ([]byte, error) {
	e := a.ix.Lookup(name)
	if e == nil {
		return nil, errs.ErrEntryNotFound
	}

	return a.readLive(e, password)
}

func (a *Archive) readLive(e *section.Entry, password string) ([]byte, error) {
	if password == "" {
		password = a.cfg.Password
	}

	payload, err := a.readPayload(e)
	if err != nil {
		return nil, err
	}

	return a.decode(e, payload, password)
}

// readPayload reads the entry's raw blob from the data region.
func (a *Archive) readPayload(e *section.Entry) ([]byte, error) {
	if e.CompSize > uint64(maxInt) {
		return nil, errs.ErrFileTooLarge
	}

	payload := make([]byte, e.CompSize)
	if _, err := a.file.ReadAt(payload, int64(e.DataOffset)); err != nil { //nolint: gosec
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("entry %d: %w", e.ID, errs.ErrTruncated)
		}

		return nil, fmt.Errorf("read entry %d: %w", e.ID, err)
	}

	return payload, nil
}

// decode turns a raw blob into verified plaintext: decrypt, inflate, CRC.
func (a *Archive) decode(e *section.Entry, payload []byte, password string) ([]byte, error) {
	if e.Flags.IsEncrypted() {
		crypt.ApplyMode(payload, password, a.cfg.LegacyXOR)
	}

	var plain []byte
	if e.Flags.IsCompressed() {
		var err error
		plain, err = compress.Inflate(payload, int(e.UncompSize)) //nolint: gosec
		if err != nil {
			if e.Flags.IsEncrypted() {
				// A wrong password turns the deflate stream to noise; report
				// it as a password failure, not corruption.
				return nil, fmt.Errorf("entry %d (%s): %w", e.ID, e.Name, errs.ErrDecryptFailed)
			}

			return nil, fmt.Errorf("entry %d (%s): %w", e.ID, e.Name, err)
		}
	} else {
		plain = payload
	}

	if uint64(len(plain)) != e.UncompSize {
		return nil, fmt.Errorf("entry %d (%s): %w", e.ID, e.Name, errs.ErrCorruptEntry)
	}

	if crc32.ChecksumIEEE(plain) != e.CRC32 {
		if e.Flags.IsEncrypted() {
			return nil, fmt.Errorf("entry %d (%s): %w", e.ID, e.Name, errs.ErrDecryptFailed)
		}

		return nil, fmt.Errorf("entry %d (%s): %w", e.ID, e.Name, errs.ErrCorruptEntry)
	}

	return plain, nil
}

// Cat writes one entry's plaintext to w.
func (a *Archive) Cat(name, password string, w io.Writer) error {
	data, err := a.ReadEntryByName(name, password)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("cat %s: %w", name, err)
	}

	return nil
}

// Test decrypts, inflates, and CRC-checks every live entry.
//
// Per-entry failures are emitted to sink and counted; the pass continues
// with the next entry.
//
// Returns:
//   - int: the number of failed entries
//   - error: errs.ErrPartialFailure when any entry failed
func (a *Archive) Test(password string, sink status.Sink) (int, error) {
	if sink == nil {
		sink = status.Discard
	}

	if password == "" {
		password = a.cfg.Password
	}

	failed := 0
	for _, e := range a.ix.Entries {
		if !e.IsLive() || e.IsDir() {
			continue
		}
		if err := a.verifyEntry(e, password); err != nil {
			failed++
			sink.Emit(fmt.Sprintf("FAIL %s: %v", e.Name, err))
			continue
		}
		sink.Emit(fmt.Sprintf("OK   %s", e.Name))
	}

	if failed > 0 {
		return failed, fmt.Errorf("%d entries: %w", failed, errs.ErrPartialFailure)
	}

	return 0, nil
}

// verifyEntry decodes one entry and discards the result. The payload is
// staged in a pooled buffer so a whole-archive test stays allocation-flat
// for the staging side.
func (a *Archive) verifyEntry(e *section.Entry, password string) error {
	if e.CompSize > uint64(maxInt) {
		return errs.ErrFileTooLarge
	}

	bb := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(bb)

	bb.SetLength(int(e.CompSize))
	if e.CompSize > 0 {
		if _, err := a.file.ReadAt(bb.B, int64(e.DataOffset)); err != nil { //nolint: gosec
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return fmt.Errorf("entry %d: %w", e.ID, errs.ErrTruncated)
			}

			return fmt.Errorf("read entry %d: %w", e.ID, err)
		}
	}

	_, err := a.decode(e, bb.B, password)

	return err
}

// ExtractAll extracts every live entry under destDir, restoring mode and
// mtime. Parent directories are created as needed; per-entry failures are
// emitted to sink and counted while the pass continues.
//
// Returns:
//   - int: the number of failed entries
//   - error: errs.ErrPartialFailure when any entry failed
func (a *Archive) ExtractAll(destDir, password string, sink status.Sink) (int, error) {
	if sink == nil {
		sink = status.Discard
	}

	failed := 0
	for _, e := range a.ix.Entries {
		if !e.IsLive() {
			continue
		}
		if err := a.extractEntry(e, filepath.Join(destDir, filepath.FromSlash(e.Name)), password); err != nil {
			failed++
			sink.Emit(fmt.Sprintf("FAIL %s: %v", e.Name, err))
			continue
		}
		sink.Emit(e.Name)
	}

	if failed > 0 {
		return failed, fmt.Errorf("%d entries: %w", failed, errs.ErrPartialFailure)
	}

	return 0, nil
}

// ExtractSingle extracts the named entry to the exact destination path.
func (a *Archive) ExtractSingle(name, destPath, password string) error {
	e := a.ix.Lookup(name)
	if e == nil {
		return errs.ErrEntryNotFound
	}

	return a.extractEntry(e, destPath, password)
}

func (a *Archive) extractEntry(e *section.Entry, destPath, password string) error {
	if e.IsDir() {
		mode := os.FileMode(e.Mode & 0o7777)
		if mode == 0 {
			mode = 0o755
		}
		if err := os.MkdirAll(destPath, mode); err != nil {
			return fmt.Errorf("mkdir %s: %w", destPath, err)
		}

		return restoreTimes(destPath, e)
	}

	data, err := a.readLive(e, password)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(destPath), err)
	}

	mode := os.FileMode(e.Mode & 0o7777)
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(destPath, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	// WriteFile only applies the mode on creation; force it for
	// pre-existing destinations.
	if err := os.Chmod(destPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", destPath, err)
	}

	return restoreTimes(destPath, e)
}

func restoreTimes(path string, e *section.Entry) error {
	if e.MTime == 0 {
		return nil
	}
	mtime := time.Unix(int64(e.MTime), 0) //nolint: gosec
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		return fmt.Errorf("chtimes %s: %w", path, err)
	}

	return nil
}
