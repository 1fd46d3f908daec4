// Package handle defines the opaque 64-bit resource handle and its codec.
//
// A handle packs a slot index and a generation counter:
//
//	h := handle.Pack(index, generation)
//	h.Index()      // slot index in the issuing table
//	h.Generation() // occupancy generation
//
// Handles are pure values: equality, packing, and decoding never touch a
// table and need no synchronization. Whether a handle is LIVE is a question
// only its issuing table can answer; a decoded handle whose generation no
// longer matches the table entry is stale and all table operations treat it
// as a no-op.
//
// Handle 0 (handle.Nil) is reserved to mean "no resource". Tables issue
// generations starting at 1, so a successful allocation can never return Nil.
//
// Handles are process-local. They are not stable across registry rebuilds
// and must not be serialized.
package handle
