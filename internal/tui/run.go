package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/events"
	"github.com/conneroisu/vlist/internal/viewport"
)

// teaHost bridges engine render callbacks onto the bubbletea message
// queue. Transform frames are not needed in the terminal: rows arrive
// pre-windowed, one per line.
type teaHost struct {
	send func(tea.Msg)
}

func (h *teaHost) ApplyTransform(float64) {}

func (h *teaHost) SetScrollbar(pos, size float64) {
	h.send(scrollbarMsg{pos: pos, size: size})
}

func (h *teaHost) RenderRange(start, end int, rows []viewport.Row) {
	h.send(frameMsg{start: start, end: end, rows: rows})
}

// Run starts the terminal demo and blocks until the user quits.
func Run(coll *collection.Collection, engine *viewport.Engine, bus *events.Bus) error {
	m := NewModel(coll, engine)
	p := tea.NewProgram(m, tea.WithAltScreen())

	engine.SetHost(&teaHost{send: p.Send})

	unsub := bus.SubscribeAll(func(e events.Event) {
		p.Send(engineEventMsg{event: e})
	})
	defer unsub()

	_, err := p.Run()

	return err
}
