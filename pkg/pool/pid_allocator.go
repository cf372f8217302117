package pool

import (
	"fmt"
	"sync"
)

// idAllocator hands out sequential pool-local identifiers when the
// caller doesn't supply one to Add, adapted from the teacher's
// PIDAllocator: increment, wrap, skip in-use, to keep identifiers
// small and reusable across a long-running pool instead of growing
// without bound.
type idAllocator struct {
	mu     sync.Mutex
	next   int64
	inUse  map[int64]struct{}
	idMax  int64
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		next:  1,
		idMax: 1 << 32,
		inUse: make(map[int64]struct{}),
	}
}

func (a *idAllocator) alloc() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.next
	for {
		p := a.next
		a.next++
		if a.next > a.idMax {
			a.next = 1
		}
		if _, used := a.inUse[p]; !used {
			a.inUse[p] = struct{}{}
			return p
		}
		if a.next == start {
			panic(fmt.Sprintf("pool: identifier space exhausted: 1..%d fully allocated", a.idMax))
		}
	}
}

// reserve marks an explicitly-supplied identifier as in-use so the
// allocator never later hands out a colliding one.
func (a *idAllocator) reserve(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse[id] = struct{}{}
}

func (a *idAllocator) release(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inUse, id)
}
