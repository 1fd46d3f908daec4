// Package descriptor manages bindless descriptor-array slots.
//
// A bindless renderer addresses resources through one large descriptor
// array indexed by integer. This package owns the bookkeeping half of that
// scheme: a fixed-capacity Pool hands out Slot values and recycles them
// when the owning occupancy is freed. Writing the actual GPU descriptor is
// the engine's job, done through the registry's publication seam.
//
// Slot is a value type whose zero value means "no descriptor assigned", so
// it can be embedded in shader-visible structs directly:
//
//	s, ok := pool.Acquire()
//	if ok {
//	    writeDescriptor(s.Index(), view) // 0-based array position
//	    material.AlbedoSlot = s.Value()  // raw value, 0 = unassigned
//	}
//
// The 1-based raw value keeps 0 free as the shader-side "invalid" sentinel;
// Slot.Index owns the off-by-one so callers never subtract.
package descriptor
