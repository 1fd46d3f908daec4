// Package gpu declares the graphics-backend boundary types used by the
// registry: opaque driver-object identifiers, the per-kind backing tuples
// stored in slot entries, and the creation descriptors validated by Alloc.
//
// Nothing here talks to a graphics API. The registry materializes and
// destroys backing objects exclusively through construct/destruct hooks
// supplied by the owning engine; this package only fixes the shapes those
// hooks exchange.
package gpu
