// Package registry implements the engine's resource-lifetime layer:
// generational slot tables that issue stable typed handles to GPU-backed
// objects, track reference counts, and assign bindless descriptor slots.
//
// # Slot Tables
//
// Each resource kind (texture, buffer, sampler) gets its own fixed-capacity
// Table. A table entry carries a generation counter, a refcount, and the
// kind's backing tuple. Handles encode (index, generation); a handle is
// live only while its generation matches the entry's, so a handle captured
// before a free-then-realloc of the same index is detected as stale and
// every operation on it degrades to a safe no-op.
//
//	table, _ := registry.NewTable(handle.Texture, 1024, hooks)
//
//	h, err := table.Alloc(gpu.TextureDesc{...}) // refcount 1
//	table.Retain(h)                             // refcount 2
//	table.Release(h)                            // refcount 1
//	table.Release(h)                            // destruct hook runs, slot freed
//	table.Release(h)                            // stale: no-op
//
// # Lifecycle Hooks
//
// The registry does not create or destroy driver objects. The owning
// engine supplies Construct/Destruct hooks per kind; the table invokes
// them at the right lifecycle points, always without its lock held, so
// hooks may call back into the registry.
//
// # Bindless Publication
//
// With a descriptor pool attached, each occupancy holds one descriptor
// slot from allocation to final release. DescriptorSlot answers from a
// read lock and returns descriptor.None for stale handles.
//
// # Concurrency
//
// One mutex per table serializes mutations; queries share a read lock.
// Once a release observes refcount zero, the slot is vacated, with its
// generation bumped, before Release returns, so no concurrent Retain
// presenting the old handle can resurrect the occupancy.
package registry
