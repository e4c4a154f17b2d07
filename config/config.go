// Package config captures the environment-driven configuration of the baar
// engine. Inspect the environment once at startup with FromEnv and pass the
// resulting Config into engine operations; the engine itself never reads
// the environment.
package config

import (
	"os"
	"strings"
)

// Environment variable names. Unknown BAAR_* variables are ignored.
const (
	// EnvLegacyXOR switches the keystream cipher to the legacy repeat-XOR
	// mode for compatibility with old archives.
	EnvLegacyXOR = "BAAR_LEGACY_XOR"

	// EnvVerbose enables full source paths and the spinner in progress
	// output.
	EnvVerbose = "BAAR_VERBOSE"

	// EnvPassword supplies a default password used when none is passed
	// explicitly.
	EnvPassword = "BAAR_PASSWORD"

	// EnvDebugMirror enables per-file mirror planning diagnostics on the
	// status channel.
	EnvDebugMirror = "BAAR_DEBUG_MIRROR"
)

// Config is the engine configuration resolved from the environment.
type Config struct {
	// LegacyXOR selects the legacy repeat-XOR keystream.
	LegacyXOR bool

	// Verbose selects full-path progress lines and the spinner.
	Verbose bool

	// Password is the default password for encrypt/decrypt operations.
	Password string

	// DebugMirror emits mirror planning diagnostics.
	DebugMirror bool
}

// FromEnv reads the BAAR_* variables and returns the resulting Config.
func FromEnv() Config {
	return Config{
		LegacyXOR:   truthy(os.Getenv(EnvLegacyXOR)),
		Verbose:     truthy(os.Getenv(EnvVerbose)),
		Password:    os.Getenv(EnvPassword),
		DebugMirror: truthy(os.Getenv(EnvDebugMirror)),
	}
}

// truthy reports whether an environment value enables a boolean option.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
