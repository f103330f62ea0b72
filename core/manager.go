package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// Host receives the manager's outbound notifications.
type Host interface {
	// OnActiveContentChanged asks the host to repaint using Render.
	OnActiveContentChanged()
	// OnTrayMenuChanged asks the host to republish TrayMenu.
	OnTrayMenuChanged()
}

// HostFuncs adapts plain functions to Host. Nil fields are skipped.
type HostFuncs struct {
	ContentChanged  func()
	TrayMenuChanged func()
}

// OnActiveContentChanged calls ContentChanged.
func (h HostFuncs) OnActiveContentChanged() {
	if h.ContentChanged != nil {
		h.ContentChanged()
	}
}

// OnTrayMenuChanged calls TrayMenuChanged.
func (h HostFuncs) OnTrayMenuChanged() {
	if h.TrayMenuChanged != nil {
		h.TrayMenuChanged()
	}
}

// Manager owns the ordered screens, tracks the active one and aggregates
// their tray menus. The screen list is immutable after construction.
type Manager struct {
	screens []Screen
	height  int
	width   int
	rotate  time.Duration
	host    Host
	log     pslog.Logger

	mu       sync.Mutex
	ready    bool
	active   int
	lastMenu []schema.MenuItem
}

// NewManager builds one screen per factory, in order. Each screen receives
// hooks tagged with its index. A failing factory aborts construction.
func NewManager(factories []Factory, args Args, host Host) (*Manager, error) {
	display, err := schema.NormalizeDisplayConfig(args.Display)
	if err != nil {
		return nil, err
	}
	args.Display = display
	if host == nil {
		host = HostFuncs{}
	}
	m := &Manager{
		height: display.Height,
		width:  display.Width,
		rotate: display.RotateInterval,
		host:   host,
		log:    args.logger(),
	}
	screens := make([]Screen, 0, len(factories))
	for i, factory := range factories {
		if factory == nil {
			return nil, fmt.Errorf("screen factory %d is nil", i)
		}
		screen, err := factory(args, NewHooks(i, m))
		if err != nil {
			m.log.Warn("manager screen build failed", "slot", i, "err", err)
			return nil, fmt.Errorf("build screen %d: %w", i, err)
		}
		if screen == nil {
			return nil, fmt.Errorf("screen factory %d returned nil", i)
		}
		screens = append(screens, screen)
	}
	m.screens = screens
	menu := m.TrayMenu()
	m.mu.Lock()
	m.lastMenu = menu
	m.ready = true
	m.mu.Unlock()
	m.log.Info("manager ready", "screens", len(screens), "height", m.height, "width", m.width)
	return m, nil
}

// Len returns the number of screens.
func (m *Manager) Len() int {
	return len(m.screens)
}

// Names returns the screen names in order.
func (m *Manager) Names() []schema.ScreenName {
	out := make([]schema.ScreenName, len(m.screens))
	for i, screen := range m.screens {
		out[i] = screen.Name()
	}
	return out
}

// Size returns the display height and width.
func (m *Manager) Size() (int, int) {
	return m.height, m.width
}

// SetActive selects the screen at index, clamped into range.
func (m *Manager) SetActive(index int) {
	m.mu.Lock()
	m.active = m.clamp(index)
	m.mu.Unlock()
}

// ActiveIndex returns the position of the active screen.
func (m *Manager) ActiveIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Active returns the active screen, or nil when there are none.
func (m *Manager) Active() Screen {
	m.mu.Lock()
	idx := m.active
	m.mu.Unlock()
	if len(m.screens) == 0 {
		return nil
	}
	return m.screens[idx]
}

// Next activates the following screen, wrapping around, and asks the host
// to repaint.
func (m *Manager) Next() {
	m.step(1)
}

// Prev activates the preceding screen, wrapping around, and asks the host
// to repaint.
func (m *Manager) Prev() {
	m.step(-1)
}

func (m *Manager) step(delta int) {
	n := len(m.screens)
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.active = ((m.active+delta)%n + n) % n
	idx := m.active
	m.mu.Unlock()
	m.log.Debug("manager rotate", "active", idx, "screen", m.screens[idx].Name())
	m.host.OnActiveContentChanged()
}

// Render returns the active screen's rows fitted to the display. With no
// screens it returns blank rows of the configured size.
func (m *Manager) Render() []string {
	screen := m.Active()
	if screen == nil {
		return Fit(nil, m.height, m.width)
	}
	return Fit(screen.Render(), m.height, m.width)
}

// TrayMenu returns every screen's tray menu concatenated in screen order.
// It is recomputed on every call.
func (m *Manager) TrayMenu() []schema.MenuItem {
	var out []schema.MenuItem
	for _, screen := range m.screens {
		out = append(out, screen.TrayMenu()...)
	}
	return out
}

// InvokeTrayItem runs the action of item index in the current tray menu.
func (m *Manager) InvokeTrayItem(index int) error {
	menu := m.TrayMenu()
	if index < 0 || index >= len(menu) {
		return schema.ErrMenuItemNotFound
	}
	item := menu[index]
	m.log.Info("manager tray invoke", "index", index, "label", item.Label)
	if item.Action != nil {
		item.Action()
	}
	return nil
}

// HandleScreenEvent implements EventSink for the manager's own screens.
func (m *Manager) HandleScreenEvent(slot int, kind EventKind) {
	m.mu.Lock()
	ready := m.ready
	m.mu.Unlock()
	if !ready {
		return
	}
	switch kind {
	case EventTrayChanged:
		m.handleTrayChanged(slot)
	case EventContentChanged:
		m.handleContentChanged(slot)
	}
}

func (m *Manager) handleTrayChanged(slot int) {
	menu := m.TrayMenu()
	m.mu.Lock()
	changed := !schema.SameMenu(menu, m.lastMenu)
	m.lastMenu = menu
	m.mu.Unlock()
	if !changed {
		m.log.Trace("manager tray unchanged", "slot", slot)
		return
	}
	m.log.Debug("manager tray changed", "slot", slot, "items", len(menu))
	m.host.OnTrayMenuChanged()
}

func (m *Manager) handleContentChanged(slot int) {
	m.mu.Lock()
	active := m.active == slot
	m.mu.Unlock()
	if !active {
		return
	}
	m.host.OnActiveContentChanged()
}

// Run starts every screen that implements Runner plus the optional
// auto-rotation ticker, and blocks until ctx is done or a runner fails.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, screen := range m.screens {
		runner, ok := screen.(Runner)
		if !ok {
			continue
		}
		name := screen.Name()
		slot := i
		g.Go(func() error {
			if err := runner.Run(ctx); err != nil {
				m.log.Warn("manager screen stopped", "slot", slot, "screen", name, "err", err)
				return fmt.Errorf("screen %s: %w", name, err)
			}
			return nil
		})
	}
	if m.rotate > 0 && len(m.screens) > 1 {
		g.Go(func() error {
			ticker := time.NewTicker(m.rotate)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					m.Next()
				}
			}
		})
	}
	<-ctx.Done()
	return g.Wait()
}

func (m *Manager) clamp(index int) int {
	n := len(m.screens)
	if n == 0 || index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
