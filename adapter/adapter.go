// Package adapter defines the contract for delegating non-native containers
// (ZIP, TAR, 7z, ...) to an external multi-format archive backend.
//
// The native engine neither interprets nor implements these formats; the
// CLI and GUI route to whatever Adapter the embedding program registers.
// Methods return process exit codes because implementations typically shell
// out to an external tool.
package adapter

import "github.com/trinajstica/baar/format"

// Adapter handles containers the native engine does not understand.
type Adapter interface {
	// IsSupported reports whether the file at path is a container this
	// adapter can handle.
	IsSupported(path string) bool

	// List prints the container's entries, optionally as JSON.
	List(path string, jsonOut, verbose bool) int

	// Extract unpacks the whole container into destDir.
	Extract(path, destDir, password string) int

	// ExtractSingle unpacks one entry into destDir.
	ExtractSingle(path, entryName, destDir, password string) int

	// ExtractToPath unpacks one entry to an exact destination path.
	ExtractToPath(path, entryName, destPath, password string) int

	// Test verifies the container's integrity.
	Test(path, password string) int

	// AddFiles adds files to the container at the given compression level.
	AddFiles(path string, filePaths []string, level format.Level, password string, verbose bool) int

	// GetFormat returns a short format name such as "zip" or "tar.gz".
	GetFormat(path string) string
}

var registered Adapter

// Register installs the process-wide multi-format adapter. Passing nil
// clears it.
func Register(a Adapter) {
	registered = a
}

// For returns the registered adapter if it claims support for path, nil
// otherwise.
func For(path string) Adapter {
	if registered != nil && registered.IsSupported(path) {
		return registered
	}

	return nil
}
