// Package bindless is a graphics engine's resource-lifetime layer: a
// registry that issues stable generational handles to GPU-backed objects,
// tracks reference counts, and assigns bindless descriptor slots.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	bindless/
//	├── registry/    Slot tables, the alloc/retain/release/query API
//	├── handle/      Opaque 64-bit (index, generation) handle codec
//	├── descriptor/  Bindless descriptor-slot pool
//	├── gpu/         Driver-object types and creation descriptors
//	├── config/      Per-kind table sizing (YAML)
//	└── errors/      Structured error types
//
// # Quick Start
//
// The engine supplies construct/destruct hooks per resource kind; the
// registry drives them at the right lifecycle points:
//
//	reg, err := registry.New(config.Default(), hooks)
//	defer reg.Close()
//
//	h, err := reg.Textures().Alloc(gpu.TextureDesc{
//	    Width: 1024, Height: 1024,
//	    Format: gpu.FormatRGBA8SRGB,
//	    Usage:  gpu.TextureUsageSampled,
//	})
//
//	slot := reg.Textures().DescriptorSlot(h) // bindless array position
//	reg.Textures().Retain(h)                 // share ownership
//	reg.Textures().Release(h)
//	reg.Textures().Release(h)                // final: destruct hook runs
//
// # Use-After-Free Safety
//
// Every handle carries the generation of the occupancy it was issued for.
// When a slot is freed its generation is bumped, so handles captured
// before a free-then-realloc of the same index are detected as stale and
// all operations on them degrade to safe no-ops. Passing an
// already-released handle is never a crash.
//
// # Thread Safety
//
// Tables are safe for concurrent use from any goroutine. Capacities are
// fixed at construction, matching GPU descriptor-array sizing; allocation
// beyond capacity fails cleanly rather than growing.
//
// Handles are process-local and must not be serialized or reused across a
// registry rebuild.
package bindless
