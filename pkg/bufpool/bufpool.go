// Package bufpool recycles the fixed-size read buffers handed to connection
// tasks.
//
// Every connection performs one read into a buffer of the configured size
// and discards the result, so buffers are short lived and identical. A Pool
// keeps them in a sync.Pool and zeroes them on return, so no received bytes
// survive into the next connection.
//
// Usage:
//
//	pool := bufpool.New(cfg.ReadBufferSize)
//	buf := pool.Get()
//	defer pool.Put(buf)
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Pool hands out byte slices of exactly Size bytes. Safe for concurrent use.
type Pool struct {
	size int
	pool sync.Pool

	gets   atomic.Int64
	allocs atomic.Int64
}

// Stats counts pool activity.
type Stats struct {
	// Gets is the number of buffers handed out.
	Gets int64
	// Allocs is the number of buffers that had to be allocated.
	Allocs int64
}

// New creates a pool of size-byte buffers. Sizes below one are raised to one.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size}
	p.pool.New = func() any {
		p.allocs.Add(1)
		buf := make([]byte, p.size)
		return &buf
	}
	return p
}

// Size returns the length of the buffers handed out by Get.
func (p *Pool) Size() int {
	return p.size
}

// Get returns a zeroed buffer of Size bytes. Pair it with Put.
func (p *Pool) Get() []byte {
	p.gets.Add(1)
	return *(p.pool.Get().(*[]byte))
}

// Put clears buf and returns it to the pool. Buffers of another capacity
// are dropped and left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	clear(buf)
	p.pool.Put(&buf)
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{Gets: p.gets.Load(), Allocs: p.allocs.Load()}
}
