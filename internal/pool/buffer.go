package pool

import (
	"sync"
)

const (
	// HashBufferSize is the read size used while hashing files (64KB)
	HashBufferSize = 64 * 1024
	// CopyBufferSize is the read size used while streaming upload bodies (1MB)
	CopyBufferSize = 1024 * 1024
)

// BufferPool hands out fixed-size byte slices to bound memory use of
// streaming reads regardless of file size.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool of buffers of size bytes.
func NewBufferPool(size int) *BufferPool {
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

// Size returns the length of buffers in the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a full-length buffer from the pool.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() *[]byte {
	bufPtr := bp.pool.Get().(*[]byte)
	*bufPtr = (*bufPtr)[:bp.size]
	return bufPtr
}

// Put returns a buffer to the pool. Buffers of a foreign size are dropped.
// The buffer should not be used after calling Put.
func (bp *BufferPool) Put(bufPtr *[]byte) {
	if bufPtr == nil || cap(*bufPtr) != bp.size {
		return
	}
	bp.pool.Put(bufPtr)
}

// Shared pools for use throughout the module.
var (
	hashBuffers = NewBufferPool(HashBufferSize)
	copyBuffers = NewBufferPool(CopyBufferSize)
)

// GetHashBuffer returns a buffer from the shared hashing pool.
func GetHashBuffer() *[]byte {
	return hashBuffers.Get()
}

// PutHashBuffer returns a buffer to the shared hashing pool.
func PutHashBuffer(buf *[]byte) {
	hashBuffers.Put(buf)
}

// GetCopyBuffer returns a buffer from the shared copy pool.
func GetCopyBuffer() *[]byte {
	return copyBuffers.Get()
}

// PutCopyBuffer returns a buffer to the shared copy pool.
func PutCopyBuffer(buf *[]byte) {
	copyBuffers.Put(buf)
}
