// Package bufpool provides a buffer pool for chat frame payloads.
//
// Every inbound frame body is read into a pooled buffer and returned to
// the pool once its handler has run, so a busy node recycles a small set
// of payload-sized buffers instead of allocating per message. The wire
// protocol caps payloads at a few kilobytes, so a single size class is
// enough; requests above the class are allocated directly and never
// pooled.
//
// All operations are safe for concurrent use.
//
// Usage:
//
//	buf := bufpool.GetUint16(length)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// DefaultBufSize is the size class of pooled buffers. It matches the
// default wire payload bound so every legal frame body fits in one
// pooled buffer.
const DefaultBufSize = 2 << 10

// Pool hands out byte slices backed by a single sync.Pool size class.
type Pool struct {
	bufs    sync.Pool
	bufSize int
}

// NewPool creates a pool whose buffers are bufSize bytes. A size of
// zero or less selects DefaultBufSize. Nodes configured with a larger
// payload bound should size the pool to match it.
func NewPool(bufSize int) *Pool {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}

	p := &Pool{bufSize: bufSize}
	p.bufs = sync.Pool{
		New: func() any {
			buf := make([]byte, p.bufSize)
			return &buf
		},
	}
	return p
}

// BufSize returns the pool's size class.
func (p *Pool) BufSize() int {
	return p.bufSize
}

// Get returns a slice of exactly the requested length. Buffers up to
// the size class come from the pool; larger ones are allocated directly
// and will not be retained by Put.
//
// The caller must hand the buffer back with Put when done with it.
func (p *Pool) Get(size int) []byte {
	if size > p.bufSize {
		return make([]byte, size)
	}
	bufPtr := p.bufs.Get().(*[]byte)
	return (*bufPtr)[:size]
}

// Put returns a buffer obtained from Get. The buffer must not be used
// afterwards. Buffers whose capacity does not match the size class are
// left for the garbage collector.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.bufSize {
		return
	}
	full := buf[:cap(buf)]
	p.bufs.Put(&full)
}

// globalPool serves the package-level helpers with default sizing.
var globalPool = NewPool(0)

// Get returns a slice of the requested length from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// GetUint16 accepts the uint16 length decoded from a frame header.
func GetUint16(size uint16) []byte {
	return globalPool.Get(int(size))
}
