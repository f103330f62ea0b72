// Package tui hosts the display in the local terminal with Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/marquee/internal/eventbus"
	"pkt.systems/marquee/schema"
	"pkt.systems/pslog"
)

// Controller is the part of the screen manager the local host drives.
type Controller interface {
	Next()
	Prev()
	InvokeTrayItem(index int) error
}

// eventMsg carries a display snapshot from the event bus.
type eventMsg eventbus.Event

// closedMsg reports that the event subscription ended.
type closedMsg struct{}

// Model renders the latest display snapshot and forwards keys to the
// controller.
type Model struct {
	controller Controller
	events     <-chan eventbus.Event
	log        pslog.Logger
	styles     Styles

	last     eventbus.Event
	notice   string
	quitting bool
}

// Options configures the local host.
type Options struct {
	Theme  schema.ThemeName
	Logger pslog.Logger
}

// NewModel builds a model starting from initial.
func NewModel(controller Controller, events <-chan eventbus.Event, initial eventbus.Event, opts Options) *Model {
	log := opts.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Model{
		controller: controller,
		events:     events,
		last:       initial,
		log:        log,
		styles:     StylesFor(opts.Theme),
	}
}

// Init starts listening for display events.
func (m *Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan eventbus.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles keys and display events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case eventMsg:
		m.last = eventbus.Event(msg)
		return m, waitForEvent(m.events)
	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c", "ctrl+d":
		m.quitting = true
		return m, tea.Quit
	case "left", "up", "shift+tab":
		m.notice = ""
		m.controller.Prev()
	case "right", "down", "tab":
		m.notice = ""
		m.controller.Next()
	case "ctrl+l":
		m.notice = ""
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			index := int(key[0] - '1')
			if err := m.controller.InvokeTrayItem(index); err != nil {
				m.notice = "no menu item " + key
				m.log.Debug("tui tray invoke failed", "index", index, "err", err)
			} else {
				m.notice = ""
			}
		}
	}
	return m, nil
}

// View renders the screen strip, the display panel and the tray menu.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var parts []string
	parts = append(parts, m.indicator())
	parts = append(parts, m.styles.Panel.Render(strings.Join(m.last.Frame, "\n")))
	for i, label := range m.last.Menu {
		if i >= 9 {
			break
		}
		parts = append(parts, m.styles.Key.Render(fmt.Sprintf("%d)", i+1))+" "+label)
	}
	parts = append(parts, m.styles.Dim.Render("←/→ screens  1-9 menu  q quit"))
	if m.notice != "" {
		parts = append(parts, m.styles.Notice.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) indicator() string {
	if len(m.last.Screens) == 0 {
		return m.styles.Dim.Render("no screens")
	}
	out := make([]string, len(m.last.Screens))
	for i, name := range m.last.Screens {
		if i == m.last.Active {
			out[i] = m.styles.Active.Render("[" + string(name) + "]")
		} else {
			out[i] = m.styles.Dim.Render(" " + string(name) + " ")
		}
	}
	return strings.Join(out, "")
}

// Run shows the display in the local terminal until the user quits or ctx
// is done.
func Run(ctx context.Context, controller Controller, bus *eventbus.Bus, opts Options, programOpts ...tea.ProgramOption) error {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	initial, _ := bus.Snapshot(eventbus.EventRender)
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(ctx)
	}
	model := NewModel(controller, events, initial, opts)
	programOpts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, programOpts...)
	program := tea.NewProgram(model, programOpts...)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
