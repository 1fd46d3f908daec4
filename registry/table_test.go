package registry

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tidegfx/bindless/descriptor"
	"github.com/tidegfx/bindless/errors"
	"github.com/tidegfx/bindless/gpu"
	"github.com/tidegfx/bindless/handle"
)

// fakeDriver hands out fake driver-object ids and counts teardowns,
// standing in for the engine's graphics backend.
type fakeDriver struct {
	mu        sync.Mutex
	nextID    uint64
	destructs map[uint32]int // table index -> teardown count
	failNext  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{destructs: map[uint32]int{}}
}

func (d *fakeDriver) textureHooks() Hooks[gpu.TextureDesc, gpu.Texture] {
	return Hooks[gpu.TextureDesc, gpu.Texture]{
		Construct: func(slot uint32, desc gpu.TextureDesc) (gpu.Texture, error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			if d.failNext {
				d.failNext = false
				return gpu.Texture{}, fmt.Errorf("out of device memory")
			}
			d.nextID++
			return gpu.Texture{
				Image:  gpu.Image(d.nextID),
				Memory: gpu.DeviceMemory(d.nextID),
				View:   gpu.ImageView(d.nextID),
			}, nil
		},
		Destruct: func(slot uint32, obj gpu.Texture) {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.destructs[slot]++
		},
	}
}

func (d *fakeDriver) destructCount(slot uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destructs[slot]
}

func (d *fakeDriver) totalDestructs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.destructs {
		total += n
	}
	return total
}

func validTexDesc() gpu.TextureDesc {
	return gpu.TextureDesc{Width: 64, Height: 64, Format: gpu.FormatRGBA8, Usage: gpu.TextureUsageSampled}
}

func newTexTable(t *testing.T, capacity uint32, opts ...Option) (*TextureTable, *fakeDriver) {
	t.Helper()
	d := newFakeDriver()
	table, err := NewTable(handle.Texture, capacity, d.textureHooks(), opts...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table, d
}

func TestAllocReturnsLiveHandle(t *testing.T) {
	table, _ := newTexTable(t, 4)

	h, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if h.IsNil() {
		t.Fatal("successful Alloc returned the nil handle")
	}
	obj, ok := table.Get(h)
	if !ok {
		t.Fatal("Get on fresh handle failed")
	}
	if obj.Image == 0 {
		t.Fatal("backing object not materialized")
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestAllocRejectsInvalidDescriptor(t *testing.T) {
	table, _ := newTexTable(t, 4)

	h, err := table.Alloc(gpu.TextureDesc{})
	if err == nil {
		t.Fatal("empty descriptor must fail")
	}
	if !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("got %v, want invalid_argument", err)
	}
	if !h.IsNil() {
		t.Fatal("failed Alloc must return the nil handle")
	}
	if table.Len() != 0 {
		t.Fatal("failed Alloc must not consume a slot")
	}
}

// Handles from the same table are pairwise distinct while it is not full.
func TestAllocUniqueness(t *testing.T) {
	table, _ := newTexTable(t, 16)

	seen := map[handle.Handle]bool{}
	for i := 0; i < 16; i++ {
		h, err := table.Alloc(validTexDesc())
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
		if seen[h] {
			t.Fatalf("duplicate handle %v", h)
		}
		seen[h] = true
	}
}

// Capacity 4: four allocs succeed, the fifth is exhausted, releasing one
// lets the sixth succeed on the freed index with a bumped generation.
func TestCapacityExhaustionAndReuse(t *testing.T) {
	table, _ := newTexTable(t, 4)

	handles := make([]handle.Handle, 4)
	for i := range handles {
		h, err := table.Alloc(validTexDesc())
		if err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
		handles[i] = h
	}

	if _, err := table.Alloc(validTexDesc()); !stderrors.Is(err, errors.ErrExhausted) {
		t.Fatalf("fifth Alloc: got %v, want exhausted", err)
	}

	table.Release(handles[2])

	h, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc after release: %v", err)
	}
	if h.Index() != handles[2].Index() {
		t.Fatalf("reused index %d, want freed index %d", h.Index(), handles[2].Index())
	}
	if h.Generation() <= handles[2].Generation() {
		t.Fatalf("generation %d not bumped past %d", h.Generation(), handles[2].Generation())
	}
}

// A fully-released handle must never touch the slot's next occupant.
func TestGenerationSafety(t *testing.T) {
	table, d := newTexTable(t, 1)

	h1, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	table.Release(h1)

	h2, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("realloc: %v", err)
	}
	if h2.Index() != h1.Index() {
		t.Fatalf("expected index reuse, got %d and %d", h1.Index(), h2.Index())
	}
	if h1 == h2 {
		t.Fatal("recycled slot produced an identical handle")
	}

	// Stale operations must not disturb h2's occupancy.
	table.Retain(h1)
	table.Release(h1)
	table.Release(h1)
	if s := table.DescriptorSlot(h1); !s.IsNone() {
		t.Fatalf("stale DescriptorSlot = %d, want none", s)
	}
	if _, ok := table.Get(h1); ok {
		t.Fatal("stale Get succeeded")
	}

	if _, ok := table.Get(h2); !ok {
		t.Fatal("live handle damaged by stale operations")
	}
	if d.destructCount(h2.Index()) != 1 {
		t.Fatalf("destructs = %d, want 1 (only h1's occupancy)", d.destructCount(h2.Index()))
	}
}

// n retains followed by n+1 releases tear down exactly once, on the last.
func TestRefcountBalance(t *testing.T) {
	table, d := newTexTable(t, 2)

	h, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	table.Retain(h)
	table.Retain(h) // refcount 3

	table.Release(h)
	table.Release(h)
	if d.destructCount(h.Index()) != 0 {
		t.Fatal("destructed before final release")
	}
	if _, ok := table.Get(h); !ok {
		t.Fatal("occupancy died before final release")
	}

	table.Release(h)
	if d.destructCount(h.Index()) != 1 {
		t.Fatalf("destructs = %d, want 1", d.destructCount(h.Index()))
	}

	// A fourth release is a safe no-op.
	table.Release(h)
	if d.destructCount(h.Index()) != 1 {
		t.Fatal("extra release reached the destruct hook")
	}
}

func TestDescriptorSlotStability(t *testing.T) {
	table, _ := newTexTable(t, 4, WithDescriptorPool(descriptor.NewPool(4)))

	h, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	s := table.DescriptorSlot(h)
	if s.IsNone() {
		t.Fatal("expected a descriptor slot with a pool attached")
	}
	for i := 0; i < 3; i++ {
		if got := table.DescriptorSlot(h); got != s {
			t.Fatalf("slot changed from %d to %d during occupancy", s, got)
		}
	}

	table.Release(h)
	if got := table.DescriptorSlot(h); !got.IsNone() {
		t.Fatalf("slot %d survived release", got)
	}
}

func TestDescriptorSlotWithoutPool(t *testing.T) {
	table, _ := newTexTable(t, 2)

	h, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if s := table.DescriptorSlot(h); !s.IsNone() {
		t.Fatalf("slot = %d without a pool, want none", s)
	}
}

func TestDescriptorPoolRecycling(t *testing.T) {
	pool := descriptor.NewPool(2)
	table, _ := newTexTable(t, 4, WithDescriptorPool(pool))

	a, _ := table.Alloc(validTexDesc())
	b, _ := table.Alloc(validTexDesc())

	// Pool smaller than the table: third occupancy gets no slot but the
	// allocation itself succeeds.
	c, err := table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc past pool capacity: %v", err)
	}
	if s := table.DescriptorSlot(c); !s.IsNone() {
		t.Fatalf("expected no slot past pool capacity, got %d", s)
	}

	slotA := table.DescriptorSlot(a)
	table.Release(a)

	dh, _ := table.Alloc(validTexDesc())
	if got := table.DescriptorSlot(dh); got != slotA {
		t.Fatalf("freed slot %d not recycled, got %d", slotA, got)
	}
	_ = b
}

// Constructor failure leaves the slot free with no observable side effects.
func TestConstructionFailureRollsBack(t *testing.T) {
	table, d := newTexTable(t, 2)

	before := table.Snapshot()

	d.failNext = true
	h, err := table.Alloc(validTexDesc())
	if !stderrors.Is(err, errors.ErrConstructionFailed) {
		t.Fatalf("got %v, want construction_failed", err)
	}
	if !h.IsNil() {
		t.Fatal("failed Alloc issued a handle")
	}
	if table.Len() != 0 {
		t.Fatal("failed Alloc left an occupancy")
	}
	if d.totalDestructs() != 0 {
		t.Fatal("destruct hook ran for a never-constructed object")
	}

	after := table.Snapshot()
	if after[0].Generation <= before[0].Generation {
		t.Fatal("reserved slot's generation not bumped on rollback")
	}

	// The slot is immediately available again.
	h, err = table.Alloc(validTexDesc())
	if err != nil {
		t.Fatalf("Alloc after rollback: %v", err)
	}
	if h.Index() != 0 {
		t.Fatalf("first-fit should reuse index 0, got %d", h.Index())
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestStaleHandleShapesAreNoOps(t *testing.T) {
	table, d := newTexTable(t, 2)

	for _, h := range []handle.Handle{
		handle.Nil,
		handle.Pack(0, 5),     // free slot, wrong generation
		handle.Pack(99, 1),    // index out of range
		handle.Pack(1, 0),     // generation 0 is never issued
		handle.Handle(0xDEAD), // arbitrary garbage
	} {
		table.Retain(h)
		table.Release(h)
		if s := table.DescriptorSlot(h); !s.IsNone() {
			t.Fatalf("DescriptorSlot(%v) = %d, want none", h, s)
		}
		if _, ok := table.Get(h); ok {
			t.Fatalf("Get(%v) succeeded", h)
		}
	}
	if d.totalDestructs() != 0 {
		t.Fatal("stale operations reached the destruct hook")
	}
}

func TestCloseDropsEverythingOnce(t *testing.T) {
	pool := descriptor.NewPool(4)
	table, d := newTexTable(t, 4, WithDescriptorPool(pool))

	a, _ := table.Alloc(validTexDesc())
	b, _ := table.Alloc(validTexDesc())
	table.Retain(b) // outstanding refs do not survive Close

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.destructCount(a.Index()) != 1 || d.destructCount(b.Index()) != 1 {
		t.Fatal("Close must destruct each live occupancy exactly once")
	}
	if pool.Len() != 0 {
		t.Fatalf("pool.Len() = %d after Close, want 0", pool.Len())
	}

	if _, err := table.Alloc(validTexDesc()); !stderrors.Is(err, errors.ErrClosed) {
		t.Fatalf("Alloc after Close: got %v, want closed", err)
	}

	// Old handles degrade to stale no-ops.
	table.Retain(a)
	table.Release(a)
	if d.destructCount(a.Index()) != 1 {
		t.Fatal("post-Close release reached the destruct hook")
	}

	// Idempotent.
	if err := table.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if d.totalDestructs() != 2 {
		t.Fatalf("total destructs = %d after double Close, want 2", d.totalDestructs())
	}
}

func TestObserverEvents(t *testing.T) {
	var mu sync.Mutex
	var events []Event
	table, _ := newTexTable(t, 2, WithObserver(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))

	h, _ := table.Alloc(validTexDesc())
	table.Retain(h)
	table.Release(h)
	table.Release(h)
	table.Release(h) // stale: no event

	mu.Lock()
	defer mu.Unlock()
	want := []EventType{EventAlloc, EventRetain, EventRelease, EventFree}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.Kind != handle.Texture {
			t.Fatalf("event %d kind = %s", i, e.Kind)
		}
		if e.Handle != h {
			t.Fatalf("event %d handle = %v, want %v", i, e.Handle, h)
		}
	}
	if events[0].Refcount != 1 || events[1].Refcount != 2 || events[2].Refcount != 1 || events[3].Refcount != 0 {
		t.Fatal("event refcounts do not track the transitions")
	}
}

func TestSnapshot(t *testing.T) {
	table, _ := newTexTable(t, 3, WithDescriptorPool(descriptor.NewPool(3)))

	h, _ := table.Alloc(validTexDesc())
	table.Retain(h)

	snap := table.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size %d, want 3", len(snap))
	}
	if !snap[0].InUse || snap[0].Refcount != 2 || snap[0].Slot.IsNone() {
		t.Fatalf("snapshot[0] = %+v, want live refcount-2 entry with a slot", snap[0])
	}
	if snap[1].InUse || snap[2].InUse {
		t.Fatal("free slots reported in use")
	}
}

func TestNilTableIsSafe(t *testing.T) {
	var table *TextureTable

	if _, err := table.Alloc(validTexDesc()); !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("nil table Alloc: got %v, want invalid_argument", err)
	}
	table.Retain(handle.Pack(0, 1))
	table.Release(handle.Pack(0, 1))
	if s := table.DescriptorSlot(handle.Pack(0, 1)); !s.IsNone() {
		t.Fatal("nil table DescriptorSlot must report none")
	}
}

func TestNewTableValidation(t *testing.T) {
	d := newFakeDriver()

	if _, err := NewTable(handle.Texture, 0, d.textureHooks()); !stderrors.Is(err, errors.ErrInvalidConfig) {
		t.Fatalf("zero capacity: got %v, want invalid_config", err)
	}
	if _, err := NewTable[gpu.TextureDesc, gpu.Texture](handle.Texture, 4, Hooks[gpu.TextureDesc, gpu.Texture]{}); !stderrors.Is(err, errors.ErrInvalidArgument) {
		t.Fatalf("nil construct: got %v, want invalid_argument", err)
	}
}

// Concurrent churn across goroutines must end balanced: every destruct
// exactly once, table empty, invariants intact.
func TestConcurrentChurn(t *testing.T) {
	table, _ := newTexTable(t, 64, WithDescriptorPool(descriptor.NewPool(64)))

	const workers = 8
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				h, err := table.Alloc(validTexDesc())
				if err != nil {
					// Exhaustion under contention is legitimate.
					if !stderrors.Is(err, errors.ErrExhausted) {
						t.Errorf("Alloc: %v", err)
						return
					}
					continue
				}
				table.Retain(h)
				if _, ok := table.Get(h); !ok {
					t.Error("live handle not resolvable")
					return
				}
				table.DescriptorSlot(h)
				table.Release(h)
				table.Release(h)
				// Stale by now; must stay a no-op.
				table.Release(h)
			}
		}()
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("Len() = %d after balanced churn, want 0", table.Len())
	}
	for _, info := range table.Snapshot() {
		if info.InUse || info.Refcount != 0 || !info.Slot.IsNone() {
			t.Fatalf("slot %d not fully vacated: %+v", info.Index, info)
		}
	}
}

// Once one caller drives the refcount to zero, a concurrent Retain with
// the same handle must never resurrect the occupancy.
func TestNoResurrectionAfterFinalRelease(t *testing.T) {
	table, d := newTexTable(t, 1)

	for i := 0; i < 100; i++ {
		h, err := table.Alloc(validTexDesc())
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.Release(h)
		}()
		go func() {
			defer wg.Done()
			table.Retain(h)
			table.Release(h) // balance if the retain landed
		}()
		wg.Wait()

		// Whatever the interleaving, the occupancy must be gone and
		// destructed exactly once per iteration.
		if _, ok := table.Get(h); ok {
			t.Fatal("occupancy resurrected after final release")
		}
	}
	if d.totalDestructs() != 100 {
		t.Fatalf("total destructs = %d, want 100", d.totalDestructs())
	}
}
