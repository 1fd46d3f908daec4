package handle

import "fmt"

// Kind identifies which per-kind slot table a handle was issued from.
// A handle is only meaningful against the table of its own kind.
type Kind uint8

const (
	Texture Kind = iota
	Buffer
	Sampler
)

func (k Kind) String() string {
	switch k {
	case Texture:
		return "texture"
	case Buffer:
		return "buffer"
	case Sampler:
		return "sampler"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Handle is an opaque reference to one occupancy of a slot table.
// It packs a 32-bit slot index in the high word and a 32-bit generation
// in the low word. Handle 0 (Nil) is reserved and always invalid:
// generations are issued starting at 1, so Pack never produces Nil for
// a live occupancy.
type Handle uint64

// Nil is the reserved "no resource" handle.
const Nil Handle = 0

// Pack builds a handle from a slot index and a generation.
func Pack(index, generation uint32) Handle {
	return Handle(uint64(index)<<32 | uint64(generation))
}

// Index returns the slot index encoded in h.
func (h Handle) Index() uint32 {
	return uint32(h >> 32)
}

// Generation returns the generation encoded in h.
func (h Handle) Generation() uint32 {
	return uint32(h)
}

// IsNil reports whether h is the reserved empty handle.
// This is a structural check only; a non-nil handle may still be stale.
func (h Handle) IsNil() bool {
	return h == Nil
}

func (h Handle) String() string {
	if h.IsNil() {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.Index(), h.Generation())
}
