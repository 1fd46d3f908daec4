package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tidegfx/bindless/descriptor"
	"github.com/tidegfx/bindless/errors"
	"github.com/tidegfx/bindless/handle"
)

// Desc is implemented by creation descriptors. Alloc rejects descriptors
// whose Validate fails before touching the table.
type Desc interface {
	Validate() error
}

// Hooks materialize and tear down backing objects for a table. Construct
// and Destruct are invoked WITHOUT the table lock held, so a hook may call
// back into the registry (for example to look up another handle) without
// deadlocking.
type Hooks[D Desc, T any] struct {
	// Construct creates the backing object for a slot. On error the slot
	// is returned to the free state and Alloc fails; the hook must not
	// leave partial driver objects behind.
	Construct func(slot uint32, desc D) (T, error)

	// Destruct tears down a backing object. It runs exactly once per
	// occupancy, on the final release, and receives the fully-populated
	// object. Optional; nil skips teardown.
	Destruct func(slot uint32, obj T)
}

type entry[T any] struct {
	obj        T
	generation uint32
	refcount   uint32
	slot       descriptor.Slot
	inUse      bool
	pending    bool // reserved by Alloc, construction still in flight
}

// Table is a fixed-capacity generational slot table for one resource kind.
// It owns occupancy state (generation, refcount, descriptor slot) and
// drives the construct/destruct hooks; the backing objects themselves are
// opaque to it.
//
// All methods are safe for concurrent use. Mutations serialize on one
// mutex per table; queries take a read lock and never observe a torn entry.
type Table[D Desc, T any] struct {
	hooks    Hooks[D, T]
	entries  []entry[T]
	pool     *descriptor.Pool
	log      *zap.Logger
	observer Observer
	mu       sync.RWMutex
	kind     handle.Kind
	closed   bool
}

// Option configures a Table.
type Option func(*tableOptions)

type tableOptions struct {
	pool     *descriptor.Pool
	log      *zap.Logger
	observer Observer
}

// WithDescriptorPool attaches a bindless descriptor pool. Each successful
// allocation acquires one slot, held for the occupancy's lifetime and
// recycled on the final release. Without a pool, DescriptorSlot always
// reports none.
func WithDescriptorPool(p *descriptor.Pool) Option {
	return func(o *tableOptions) { o.pool = p }
}

// WithLogger overrides the package logger for this table.
func WithLogger(l *zap.Logger) Option {
	return func(o *tableOptions) { o.log = l }
}

// WithObserver registers a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(o *tableOptions) { o.observer = obs }
}

// NewTable creates a slot table with the given fixed capacity. Capacity
// never grows; allocation beyond it fails with an exhaustion error. The
// Construct hook is required.
func NewTable[D Desc, T any](kind handle.Kind, capacity uint32, hooks Hooks[D, T], opts ...Option) (*Table[D, T], error) {
	if capacity == 0 {
		return nil, errors.InvalidConfig("%s: capacity must be at least 1", kind)
	}
	if hooks.Construct == nil {
		return nil, errors.InvalidArgument(errors.OpConfig, kind.String(), "nil Construct hook")
	}

	var o tableOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}

	entries := make([]entry[T], capacity)
	for i := range entries {
		// Generations start at 1 so no issued handle is ever zero.
		entries[i].generation = 1
	}

	return &Table[D, T]{
		kind:     kind,
		entries:  entries,
		hooks:    hooks,
		pool:     o.pool,
		log:      o.log,
		observer: o.observer,
	}, nil
}

// Kind returns the resource kind this table was built for.
func (t *Table[D, T]) Kind() handle.Kind {
	return t.kind
}

// Alloc finds a free slot, materializes a backing object into it through
// the Construct hook, and returns a handle with refcount 1.
//
// Failure modes, all leaving the table unchanged: invalid descriptor,
// table exhausted, construction failed (the reserved slot is vacated and
// its generation bumped, so no partially-built occupancy is ever
// observable through any handle).
func (t *Table[D, T]) Alloc(desc D) (handle.Handle, error) {
	if t == nil {
		return handle.Nil, errors.InvalidArgument(errors.OpAlloc, "", "nil table")
	}
	if err := desc.Validate(); err != nil {
		return handle.Nil, err
	}

	// Reserve a slot. The reservation is invisible to every caller:
	// no handle with this slot's current generation has been issued yet,
	// and the free-slot scan skips in-use entries.
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return handle.Nil, errors.Closed(errors.OpAlloc, t.kind.String())
	}
	index, ok := t.findFreeLocked()
	if !ok {
		t.mu.Unlock()
		t.log.Debug("table exhausted",
			zap.Stringer("kind", t.kind),
			zap.Int("capacity", len(t.entries)))
		return handle.Nil, errors.Exhausted(t.kind.String(), uint32(len(t.entries)))
	}
	e := &t.entries[index]
	e.inUse = true
	e.pending = true
	e.refcount = 1
	gen := e.generation
	t.mu.Unlock()

	// Materialize outside the lock: the hook may block in the driver and
	// may legitimately call back into this table.
	obj, err := t.hooks.Construct(index, desc)
	if err != nil {
		t.mu.Lock()
		t.vacateLocked(index)
		t.mu.Unlock()
		return handle.Nil, errors.ConstructionFailed(t.kind.String(), index, err)
	}

	var slot descriptor.Slot
	if t.pool != nil {
		if s, ok := t.pool.Acquire(); ok {
			slot = s
		}
	}

	t.mu.Lock()
	if t.closed {
		// Lost a race with Close: undo everything.
		t.vacateLocked(index)
		t.mu.Unlock()
		if t.pool != nil {
			t.pool.Release(slot)
		}
		if t.hooks.Destruct != nil {
			t.hooks.Destruct(index, obj)
		}
		return handle.Nil, errors.Closed(errors.OpAlloc, t.kind.String())
	}
	e = &t.entries[index]
	e.obj = obj
	e.slot = slot
	e.pending = false
	t.mu.Unlock()

	h := handle.Pack(index, gen)
	t.log.Debug("allocated",
		zap.Stringer("kind", t.kind),
		zap.Stringer("handle", h),
		zap.Uint32("descriptor_slot", slot.Value()))
	t.notify(Event{Type: EventAlloc, Kind: t.kind, Handle: h, Slot: slot, Refcount: 1})
	return h, nil
}

// Retain increments the refcount of a live occupancy. Stale or malformed
// handles are a safe no-op: the caller may be racing a defensive release
// elsewhere, and that race is resolved by the generation check, never by
// a crash. Every Retain must be balanced by exactly one extra Release.
func (t *Table[D, T]) Retain(h handle.Handle) {
	if t == nil {
		return
	}
	t.mu.Lock()
	e, ok := t.liveLocked(h)
	if !ok {
		t.mu.Unlock()
		return
	}
	e.refcount++
	rc := e.refcount
	slot := e.slot
	t.mu.Unlock()

	t.notify(Event{Type: EventRetain, Kind: t.kind, Handle: h, Slot: slot, Refcount: rc})
}

// Release decrements the refcount of a live occupancy; stale handles are
// a safe no-op. When the count reaches zero the slot is vacated (generation
// bumped, descriptor slot recycled, backing fields cleared) before Release
// returns, so no subsequent Retain can resurrect the
// occupancy. The Destruct hook then runs exactly once with the captured
// backing object, outside the table lock.
func (t *Table[D, T]) Release(h handle.Handle) {
	if t == nil {
		return
	}
	t.mu.Lock()
	e, ok := t.liveLocked(h)
	if !ok {
		t.mu.Unlock()
		return
	}
	e.refcount--
	if e.refcount > 0 {
		rc := e.refcount
		slot := e.slot
		t.mu.Unlock()
		t.notify(Event{Type: EventRelease, Kind: t.kind, Handle: h, Slot: slot, Refcount: rc})
		return
	}

	obj := e.obj
	slot := e.slot
	t.vacateLocked(h.Index())
	t.mu.Unlock()

	if t.pool != nil {
		t.pool.Release(slot)
	}
	if t.hooks.Destruct != nil {
		t.hooks.Destruct(h.Index(), obj)
	}
	t.log.Debug("freed",
		zap.Stringer("kind", t.kind),
		zap.Stringer("handle", h))
	t.notify(Event{Type: EventFree, Kind: t.kind, Handle: h, Slot: slot})
}

// DescriptorSlot returns the bindless descriptor slot of a live occupancy.
// It returns descriptor.None for stale handles and for occupancies that
// were never published (no pool attached, or the pool was exhausted).
func (t *Table[D, T]) DescriptorSlot(h handle.Handle) descriptor.Slot {
	if t == nil {
		return descriptor.None
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.liveLocked(h)
	if !ok {
		return descriptor.None
	}
	return e.slot
}

// Get returns the backing object of a live occupancy. This is the
// engine's path from a handle to the driver objects it submits.
func (t *Table[D, T]) Get(h handle.Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.liveLocked(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.obj, true
}

// Len returns the number of live occupancies.
func (t *Table[D, T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for i := range t.entries {
		if t.entries[i].inUse {
			count++
		}
	}
	return count
}

// Cap returns the table's fixed capacity.
func (t *Table[D, T]) Cap() int {
	return len(t.entries)
}

// SlotInfo is a read-only snapshot of one slot's occupancy state.
type SlotInfo struct {
	Index      uint32
	Generation uint32
	Refcount   uint32
	Slot       descriptor.Slot
	InUse      bool
}

// Snapshot copies the occupancy state of every slot, for diagnostics and
// tooling. The snapshot is internally consistent but immediately stale.
func (t *Table[D, T]) Snapshot() []SlotInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SlotInfo, len(t.entries))
	for i := range t.entries {
		e := &t.entries[i]
		out[i] = SlotInfo{
			Index:      uint32(i),
			Generation: e.generation,
			Refcount:   e.refcount,
			Slot:       e.slot,
			InUse:      e.inUse,
		}
	}
	return out
}

// Close vacates every live occupancy, running each Destruct hook exactly
// once, and rejects further allocations. Retain, Release, and queries
// against a closed table degrade to stale-handle no-ops because every
// generation was bumped on the way out. Close is idempotent.
func (t *Table[D, T]) Close() error {
	type victim struct {
		obj   T
		index uint32
		slot  descriptor.Slot
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var victims []victim
	for i := range t.entries {
		if !t.entries[i].inUse {
			continue
		}
		if t.entries[i].pending {
			// Construction in flight; that Alloc will observe the
			// closed table and roll itself back.
			continue
		}
		victims = append(victims, victim{
			index: uint32(i),
			obj:   t.entries[i].obj,
			slot:  t.entries[i].slot,
		})
		t.vacateLocked(uint32(i))
	}
	t.mu.Unlock()

	for _, v := range victims {
		if t.pool != nil {
			t.pool.Release(v.slot)
		}
		if t.hooks.Destruct != nil {
			t.hooks.Destruct(v.index, v.obj)
		}
	}
	if len(victims) > 0 {
		t.log.Debug("closed with live occupancies",
			zap.Stringer("kind", t.kind),
			zap.Int("dropped", len(victims)))
	}
	return nil
}

// liveLocked resolves a handle to its entry iff the occupancy is live:
// index in range, slot in use, generation matching. Callers hold t.mu.
func (t *Table[D, T]) liveLocked(h handle.Handle) (*entry[T], bool) {
	if h.IsNil() {
		return nil, false
	}
	index := h.Index()
	if index >= uint32(len(t.entries)) {
		return nil, false
	}
	e := &t.entries[index]
	if !e.inUse || e.pending || e.generation != h.Generation() {
		return nil, false
	}
	return e, true
}

// findFreeLocked scans first-fit by index. O(capacity), fine for the
// fixed table sizes involved; allocation is not a per-frame path.
func (t *Table[D, T]) findFreeLocked() (uint32, bool) {
	for i := range t.entries {
		if !t.entries[i].inUse {
			return uint32(i), true
		}
	}
	return 0, false
}

// vacateLocked returns a slot to the free state and bumps its generation,
// staling every handle issued against the old occupancy. The 32-bit
// counter wraps after 2^32 reuses of one slot; it skips 0 on wrap so
// issued handles stay non-zero.
func (t *Table[D, T]) vacateLocked(index uint32) {
	e := &t.entries[index]
	e.inUse = false
	e.pending = false
	e.refcount = 0
	e.slot = descriptor.None
	var zero T
	e.obj = zero
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
}

func (t *Table[D, T]) notify(e Event) {
	if t.observer != nil {
		t.observer(e)
	}
}
