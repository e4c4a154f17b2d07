package crypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyInvolution(t *testing.T) {
	original := []byte("some moderately secret payload bytes, longer than one block to cross the 32-byte boundary")
	buf := bytes.Clone(original)

	Apply(buf, "hunter2")
	require.NotEqual(t, original, buf)

	Apply(buf, "hunter2")
	require.Equal(t, original, buf)
}

func TestApplyDeterministic(t *testing.T) {
	a := bytes.Repeat([]byte{0xA5}, 100)
	b := bytes.Repeat([]byte{0xA5}, 100)

	Apply(a, "pw")
	Apply(b, "pw")
	require.Equal(t, a, b)
}

func TestApplyPasswordSensitivity(t *testing.T) {
	a := bytes.Repeat([]byte{0x00}, 64)
	b := bytes.Repeat([]byte{0x00}, 64)

	Apply(a, "pw")
	Apply(b, "px")
	require.NotEqual(t, a, b)
}

func TestApplyBlocksDiffer(t *testing.T) {
	// A zero buffer exposes the raw keystream; consecutive blocks must not
	// repeat, unlike a naive repeated-pad cipher.
	buf := make([]byte, 2*BlockSize)
	Apply(buf, "pw")
	require.NotEqual(t, buf[:BlockSize], buf[BlockSize:])
}

func TestApplyNoOps(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		require.NotPanics(t, func() { Apply(nil, "pw") })
	})

	t.Run("empty password", func(t *testing.T) {
		buf := []byte("unchanged")
		Apply(buf, "")
		require.Equal(t, []byte("unchanged"), buf)
	})
}

func TestApplyLegacyBitExact(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x00, 0xFF}
	ApplyLegacy(buf, "ab")

	// password bytes repeated: a b a b a
	require.Equal(t, []byte{'a', 'b', 'a', 'b', 0xFF ^ 'a'}, buf)

	ApplyLegacy(buf, "ab")
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0xFF}, buf)
}

func TestApplyLegacyNoOps(t *testing.T) {
	buf := []byte("unchanged")
	ApplyLegacy(buf, "")
	require.Equal(t, []byte("unchanged"), buf)
	require.NotPanics(t, func() { ApplyLegacy(nil, "pw") })
}

func TestApplyModeDispatch(t *testing.T) {
	legacy := []byte{0x00, 0x00}
	ApplyMode(legacy, "z", true)
	require.Equal(t, []byte{'z', 'z'}, legacy)

	modern := []byte{0x00, 0x00}
	ApplyMode(modern, "z", false)
	require.NotEqual(t, []byte{'z', 'z'}, modern)
}
