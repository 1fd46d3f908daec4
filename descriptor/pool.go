package descriptor

import "sync"

// Slot identifies one entry in a bindless descriptor array. The zero value
// is None: "not bindless-addressable". Internally slots are 1-based so the
// zero value stays a safe sentinel; Index hides the adjustment.
type Slot uint32

// None is the zero Slot, meaning no descriptor was assigned.
const None Slot = 0

// IsNone reports whether s is the unassigned sentinel.
func (s Slot) IsNone() bool {
	return s == None
}

// Index returns the 0-based position in the GPU descriptor array.
// It is only defined for an assigned slot.
func (s Slot) Index() uint32 {
	return uint32(s) - 1
}

// Value returns the raw 1-based wire value, 0 for None. This is the form
// written into shader-visible data so shaders can branch on zero.
func (s Slot) Value() uint32 {
	return uint32(s)
}

// Pool hands out descriptor slots from a fixed-size bindless array.
// Freed slots are reused LIFO. Pool is safe for concurrent use.
type Pool struct {
	free     []Slot
	mu       sync.Mutex
	next     uint32
	capacity uint32
}

// NewPool creates a pool for a descriptor array of the given size.
// A zero capacity yields a pool whose Acquire always fails, which
// disables bindless publication without special-casing callers.
func NewPool(capacity uint32) *Pool {
	return &Pool{capacity: capacity}
}

// Acquire returns an unused slot, or (None, false) when the descriptor
// array is fully occupied.
func (p *Pool) Acquire() (Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		return s, true
	}
	if p.next >= p.capacity {
		return None, false
	}
	p.next++
	return Slot(p.next), true
}

// Release returns a slot to the pool. Releasing None or a slot outside
// the pool's range is a no-op. Double-releasing a live slot is not
// detected; the registry is the only caller and releases each slot
// exactly once per occupancy.
func (p *Pool) Release(s Slot) {
	if s.IsNone() || uint32(s) > p.capacity {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, s)
}

// Len returns the number of slots currently handed out.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.next) - len(p.free)
}

// Cap returns the pool's fixed capacity.
func (p *Pool) Cap() int {
	return int(p.capacity)
}
