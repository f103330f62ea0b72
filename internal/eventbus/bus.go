package eventbus

import (
	"context"
	"sync"

	"pkt.systems/marquee/core"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

var _ core.Host = (*Bus)(nil)

// EventType identifies why an event was published.
type EventType string

const (
	// EventRender signals that the active screen's content changed.
	EventRender EventType = "render"
	// EventTray signals that the aggregate tray menu changed.
	EventTray EventType = "tray"
)

// Source is the display state the bus snapshots on every notification.
// *core.Manager satisfies it.
type Source interface {
	Render() []string
	TrayMenu() []schema.MenuItem
	ActiveIndex() int
	Names() []schema.ScreenName
}

// Event is a full display snapshot. Every event carries the frame and the
// tray labels so a subscriber that missed earlier events is never stale
// after the next one.
type Event struct {
	Type    EventType
	Frame   []string
	Active  int
	Screen  schema.ScreenName
	Screens []schema.ScreenName
	Menu    []string
}

// Bus fans display notifications out to attached display sessions. It
// implements core.Host. Sends never block and happen under the lock so a
// concurrent cancel cannot close a channel mid-send.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	source Source
	log    pslog.Logger
	depth  int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 16,
	}
}

// Attach sets the display state published on notifications. Notifications
// before Attach are dropped.
func (b *Bus) Attach(src Source) {
	b.mu.Lock()
	b.source = src
	b.mu.Unlock()
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// Snapshot returns the current display state, or false before Attach.
func (b *Bus) Snapshot(kind EventType) (Event, bool) {
	b.mu.Lock()
	src := b.source
	b.mu.Unlock()
	if src == nil {
		return Event{}, false
	}
	event := Event{
		Type:   kind,
		Frame:  src.Render(),
		Active: src.ActiveIndex(),
		Menu:   schema.MenuLabels(src.TrayMenu()),
	}
	event.Screens = src.Names()
	if event.Active >= 0 && event.Active < len(event.Screens) {
		event.Screen = event.Screens[event.Active]
	}
	return event, true
}

// OnActiveContentChanged publishes a render event.
func (b *Bus) OnActiveContentChanged() {
	b.publishSnapshot(EventRender)
}

// OnTrayMenuChanged publishes a tray event.
func (b *Bus) OnTrayMenuChanged() {
	b.publishSnapshot(EventTray)
}

func (b *Bus) publishSnapshot(kind EventType) {
	if b == nil {
		return
	}
	event, ok := b.Snapshot(kind)
	if !ok {
		b.log.Trace("eventbus dropped", "reason", "no source", "type", kind)
		return
	}
	b.publish(event)
}

func (b *Bus) publish(event Event) {
	b.mu.Lock()
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "count", dropped, "type", event.Type)
	}
}
