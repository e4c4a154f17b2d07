package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLittleEndianEngine(t *testing.T) {
	require := require.New(t)

	engine := GetLittleEndianEngine()
	require.NotNil(engine)
	require.Equal(binary.ByteOrder(binary.LittleEndian), binary.ByteOrder(engine))
}

func TestEngineRoundTrip(t *testing.T) {
	engine := GetLittleEndianEngine()

	t.Run("Uint16", func(t *testing.T) {
		buf := engine.AppendUint16(nil, 0xBEEF)
		require.Equal(t, []byte{0xEF, 0xBE}, buf)
		require.Equal(t, uint16(0xBEEF), engine.Uint16(buf))
	})

	t.Run("Uint32", func(t *testing.T) {
		buf := engine.AppendUint32(nil, 0xDEADBEEF)
		require.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, buf)
		require.Equal(t, uint32(0xDEADBEEF), engine.Uint32(buf))
	})

	t.Run("Uint64", func(t *testing.T) {
		buf := engine.AppendUint64(nil, 0x0102030405060708)
		require.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, buf)
		require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf))
	})
}

func TestIsNativeLittleEndianConsistency(t *testing.T) {
	first := IsNativeLittleEndian()
	for range 100 {
		require.Equal(t, first, IsNativeLittleEndian())
	}
}
