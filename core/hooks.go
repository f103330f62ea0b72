package core

// EventKind identifies what a screen changed.
type EventKind int

const (
	// EventTrayChanged signals a new tray-menu contribution.
	EventTrayChanged EventKind = iota
	// EventContentChanged signals new display content.
	EventContentChanged
)

func (k EventKind) String() string {
	switch k {
	case EventTrayChanged:
		return "tray"
	case EventContentChanged:
		return "content"
	default:
		return "unknown"
	}
}

// EventSink receives screen notifications tagged with the sender's slot.
type EventSink interface {
	HandleScreenEvent(slot int, kind EventKind)
}

// Hooks lets a screen notify its owner. The slot is fixed when the owner
// builds the screen, so every event carries the sender's identity.
type Hooks struct {
	slot int
	sink EventSink
}

// NewHooks binds a slot to a sink.
func NewHooks(slot int, sink EventSink) Hooks {
	return Hooks{slot: slot, sink: sink}
}

// Slot returns the position the owner assigned to the screen.
func (h Hooks) Slot() int {
	return h.slot
}

// TrayChanged tells the owner the screen's tray menu changed.
func (h Hooks) TrayChanged() {
	if h.sink != nil {
		h.sink.HandleScreenEvent(h.slot, EventTrayChanged)
	}
}

// ContentChanged tells the owner the screen's content changed.
func (h Hooks) ContentChanged() {
	if h.sink != nil {
		h.sink.HandleScreenEvent(h.slot, EventContentChanged)
	}
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(slot int, kind EventKind)

// HandleScreenEvent calls f.
func (f SinkFunc) HandleScreenEvent(slot int, kind EventKind) {
	if f != nil {
		f(slot, kind)
	}
}
