// Package generic holds small type-parameterized utilities shared across
// the module.
package generic

import "sync"

// Pool is a typed wrapper around sync.Pool.
type Pool[T any] struct {
	pool sync.Pool
}

// NewPool creates a pool producing fresh values with generate.
func NewPool[T any](generate func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
	}
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	p.pool.Put(value)
}

// BufferPool pools byte slices for encode scratch space. Get returns a
// zero-length slice with at least the configured capacity; oversized
// buffers are dropped instead of pooled.
type BufferPool struct {
	pool    *Pool[[]byte]
	maxKeep int
}

// NewBufferPool creates a pool of buffers with the given initial capacity.
// Buffers that grew past 4× that capacity are not retained.
func NewBufferPool(capacity int) *BufferPool {
	return &BufferPool{
		pool:    NewPool(func() []byte { return make([]byte, 0, capacity) }),
		maxKeep: capacity * 4,
	}
}

func (p *BufferPool) Get() []byte {
	return p.pool.Get()[:0]
}

func (p *BufferPool) Put(buf []byte) {
	if buf != nil && cap(buf) <= p.maxKeep {
		p.pool.Put(buf)
	}
}
