package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferWriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)

	n, err := bb.Write([]byte("payload"))
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, []byte("payload"), bb.Bytes())
	require.Equal(t, 7, bb.Len())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, cap(bb.B), 16)
}

func TestByteBufferSetLength(t *testing.T) {
	bb := NewByteBuffer(4)

	bb.SetLength(2)
	require.Equal(t, 2, bb.Len())

	// Growing past capacity preserves existing bytes.
	bb.B[0], bb.B[1] = 'a', 'b'
	bb.SetLength(1024)
	require.Equal(t, 1024, bb.Len())
	require.Equal(t, byte('a'), bb.B[0])
	require.Equal(t, byte('b'), bb.B[1])
}

func TestByteBufferWriteTo(t *testing.T) {
	bb := NewByteBuffer(8)
	_, err := bb.Write([]byte("abc"))
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, "abc", out.String())
}

func TestByteBufferPoolReuse(t *testing.T) {
	p := NewByteBufferPool(8, 64)

	bb := p.Get()
	require.NotNil(t, bb)
	_, _ = bb.Write([]byte("scratch"))
	p.Put(bb)

	again := p.Get()
	require.NotNil(t, again)
	require.Equal(t, 0, again.Len())
}

func TestByteBufferPoolDiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(8, 16)

	bb := p.Get()
	bb.SetLength(1024) // grows past the retention threshold
	p.Put(bb)          // must not panic; buffer is dropped

	fresh := p.Get()
	require.LessOrEqual(t, cap(fresh.B), 1024)
	require.Equal(t, 0, fresh.Len())
}

func TestSharedPayloadPool(t *testing.T) {
	bb := GetPayloadBuffer()
	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())
	PutPayloadBuffer(bb)
	PutPayloadBuffer(nil) // nil is a no-op
}
