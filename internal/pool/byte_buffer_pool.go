// Package pool provides sync.Pool-backed byte buffers for payload staging.
//
// The integrity test moves every entry's payload through memory once.
// Pooling its staging buffers keeps that pass allocation-flat across
// entries; streaming add and recompress do not use the pool.
package pool

import (
	"io"
	"sync"
)

const (
	// PayloadBufferDefaultSize is the starting capacity of pooled buffers,
	// sized for typical source files.
	PayloadBufferDefaultSize = 64 * 1024

	// PayloadBufferMaxThreshold is the largest buffer the pool retains.
	// Buffers grown past it (huge payloads) are dropped on Put so one
	// oversized entry does not pin memory for the rest of the process.
	PayloadBufferMaxThreshold = 8 * 1024 * 1024
)

// ByteBuffer is a growable byte slice with explicit length control.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, capacity)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// SetLength sets the length of the buffer to n, growing the allocation if
// needed. The extended region is not zeroed.
func (bb *ByteBuffer) SetLength(n int) {
	if cap(bb.B) < n {
		newBuf := make([]byte, n)
		copy(newBuf, bb.B)
		bb.B = newBuf

		return
	}
	bb.B = bb.B[:n]
}

// Write appends data to the buffer, growing it as needed. It never fails;
// the error return satisfies io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers with a retention size cap.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose fresh buffers have defaultSize
// capacity and which discards returned buffers larger than maxThreshold.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		// Discard overly large buffers to prevent memory bloat
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var payloadPool = NewByteBufferPool(PayloadBufferDefaultSize, PayloadBufferMaxThreshold)

// GetPayloadBuffer retrieves a ByteBuffer from the shared payload pool.
func GetPayloadBuffer() *ByteBuffer {
	return payloadPool.Get()
}

// PutPayloadBuffer returns a ByteBuffer to the shared payload pool.
func PutPayloadBuffer(bb *ByteBuffer) {
	payloadPool.Put(bb)
}
