package registry

import (
	"github.com/tidegfx/bindless/descriptor"
	"github.com/tidegfx/bindless/handle"
)

// EventType identifies a lifecycle transition on a slot table.
type EventType uint8

const (
	// EventAlloc fires after a successful allocation, once the handle
	// is fully constructed and published.
	EventAlloc EventType = iota

	// EventRetain fires after a refcount increment.
	EventRetain

	// EventRelease fires after a refcount decrement that left the
	// occupancy live.
	EventRelease

	// EventFree fires after the final release, once the slot has been
	// vacated and the destruct hook has run.
	EventFree
)

func (e EventType) String() string {
	switch e {
	case EventAlloc:
		return "alloc"
	case EventRetain:
		return "retain"
	case EventRelease:
		return "release"
	case EventFree:
		return "free"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition. Events are delivered outside
// the table lock, so a handle carried in an event may already be stale by
// the time the observer runs.
type Event struct {
	Type     EventType
	Kind     handle.Kind
	Handle   handle.Handle
	Slot     descriptor.Slot
	Refcount uint32 // refcount after the transition; 0 for EventFree
}

// Observer receives lifecycle events from a table. Observers must not
// block; they run on the caller's goroutine.
type Observer func(Event)
