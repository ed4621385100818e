package guest

import (
	"fmt"
	"sync"
)

// MaxTotalAllocations bounds the memory the host may hold through allocate.
const MaxTotalAllocations = 64 * 1024 * 1024

// pinTable keeps buffers handed to the host reachable until they are
// deallocated, so the Go collector cannot reclaim them while the host still
// writes through the pointer.
type pinTable struct {
	mu    sync.Mutex
	bufs  map[uint32][]byte
	total int
	limit int
	addr  func([]byte) uint32
}

func newPinTable(limit int, addr func([]byte) uint32) *pinTable {
	return &pinTable{bufs: make(map[uint32][]byte), limit: limit, addr: addr}
}

func (p *pinTable) alloc(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total+int(size) > p.limit {
		panic(fmt.Sprintf("guest: allocation limit exceeded (requested %d bytes, %d in use, limit %d)",
			size, p.total, p.limit))
	}
	buf := make([]byte, size)
	ptr := p.addr(buf)
	p.bufs[ptr] = buf
	p.total += int(size)
	return ptr
}

// free releases ptr. Unknown pointers are ignored and the stored length, not
// size, is what gets subtracted.
func (p *pinTable) free(ptr, _ uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, ok := p.bufs[ptr]
	if !ok {
		return
	}
	delete(p.bufs, ptr)
	p.total -= len(buf)
}

func (p *pinTable) inUse() (n, bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bufs), p.total
}

var pins = newPinTable(MaxTotalAllocations, bytesAddr)

// cstring returns s with a terminating zero.
func cstring(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
