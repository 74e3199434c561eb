// Package tui is the terminal demo front-end: a bubbletea program that
// renders the engine's visible window one item per line, with a
// synthetic scrollbar column, masked placeholder rows, and a loading
// spinner. It exercises the full stack the way a browser host would,
// through the RenderHost contract and the event bus.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/vlist/internal/collection"
	"github.com/conneroisu/vlist/internal/events"
	"github.com/conneroisu/vlist/internal/types"
	"github.com/conneroisu/vlist/internal/viewport"
)

const (
	// settleInterval drives the quiet-period decay of the scroll state
	// machine.
	settleInterval = 100 * time.Millisecond
	chromeLines    = 3 // header + footer + status
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	thumbStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	trackStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// frameMsg carries a RenderRange callback into the update loop.
type frameMsg struct {
	start, end int
	rows       []viewport.Row
}

// scrollbarMsg carries a SetScrollbar callback into the update loop.
type scrollbarMsg struct {
	pos, size float64
}

// engineEventMsg carries a bus event into the update loop.
type engineEventMsg struct {
	event events.Event
}

// settleMsg ticks the scroll state machine.
type settleMsg time.Time

// Model is the bubbletea model for the list demo.
type Model struct {
	engine *viewport.Engine
	coll   *collection.Collection

	sp      spinner.Model
	rows    []viewport.Row
	thumb   scrollbarMsg
	width   int
	height  int
	loading int
	lastErr string
}

// NewModel creates the demo model over an engine stack.
func NewModel(coll *collection.Collection, engine *viewport.Engine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = headerStyle

	return Model{engine: engine, coll: coll, sp: sp}
}

// Init satisfies tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sp.Tick, settleTick())
}

func settleTick() tea.Cmd {
	return tea.Tick(settleInterval, func(t time.Time) tea.Msg {
		return settleMsg(t)
	})
}

// listHeight returns the number of item lines that fit the terminal.
func (m Model) listHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}

	return h
}

// Update handles key input, render frames, and engine events.
func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := teaMsg.(type) {
	case tea.KeyMsg:
		return m.handleKey(v)

	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		m.engine.SetContainerSize(float64(m.listHeight()))

		return m, nil

	case settleMsg:
		m.engine.Settle()

		return m, settleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(v)

		return m, cmd

	case frameMsg:
		m.rows = v.rows

		return m, nil

	case scrollbarMsg:
		m.thumb = v

		return m, nil

	case engineEventMsg:
		switch e := v.event.(type) {
		case events.LoadingStart:
			m.loading++
		case events.LoadingEnd:
			if m.loading > 0 {
				m.loading--
			}
		case events.ErrorOccurred:
			m.lastErr = e.Message
		case events.RangeLoaded:
			m.lastErr = ""
		}

		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := float64(m.listHeight())

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.engine.UpdateViewport(-1)
	case "down", "j":
		m.engine.UpdateViewport(1)
	case "pgup":
		m.engine.UpdateViewport(-page)
	case "pgdown", " ":
		m.engine.UpdateViewport(page)
	case "f":
		// Flick: a large delta in one sample reads as fast scrolling,
		// so placeholders render instead of fetching.
		m.engine.UpdateViewport(page * 20)
	case "g", "home":
		_ = m.engine.ScrollToIndex(0, types.AlignStart)
	case "G", "end":
		if count, known := m.coll.Length(); known && count > 0 {
			_ = m.engine.ScrollToIndex(count-1, types.AlignEnd)
		}
	case "c":
		if count, known := m.coll.Length(); known && count > 0 {
			_ = m.engine.ScrollToIndex(count/2, types.AlignCenter)
		}
	}

	return m, nil
}

// View renders header, item lines with the scrollbar column, and help.
func (m Model) View() string {
	if m.height == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteByte('\n')
	b.WriteString(m.viewList())
	b.WriteString(m.viewFooter())

	return b.String()
}

func (m Model) viewHeader() string {
	count, known := m.coll.Length()
	countLabel := fmt.Sprintf("%d", count)
	if !known {
		countLabel += "+"
	}

	header := headerStyle.Render("vlist") + statusStyle.Render(fmt.Sprintf(
		"  %s items · %s · offset %.0f · %s",
		countLabel, m.coll.Strategy(), m.engine.Offset(), m.engine.State()))

	if m.loading > 0 {
		header += "  " + m.sp.View() + statusStyle.Render("loading")
	}
	if m.lastErr != "" {
		header += "  " + errorStyle.Render(m.lastErr)
	}

	return header
}

func (m Model) viewList() string {
	height := m.listHeight()
	track := m.scrollbarColumn(height)

	var b strings.Builder
	for line := 0; line < height; line++ {
		if line < len(m.rows) {
			b.WriteString(m.renderRow(m.rows[line]))
		}
		b.WriteString(strings.Repeat(" ", 1))
		b.WriteString(track[line])
		b.WriteByte('\n')
	}

	return b.String()
}

// scrollbarColumn maps the engine's pixel-space thumb geometry onto
// one character cell per line.
func (m Model) scrollbarColumn(height int) []string {
	cells := make([]string, height)

	total := m.engine.TotalVirtualSize()
	if total <= float64(height) {
		for i := range cells {
			cells[i] = trackStyle.Render("│")
		}

		return cells
	}

	// Thumb geometry is already in line units: the engine's container
	// and track sizes are both the list height.
	start := int(m.thumb.pos)
	end := int(m.thumb.pos + m.thumb.size)
	if end <= start {
		end = start + 1
	}

	for i := range cells {
		if i >= start && i < end && i < height {
			cells[i] = thumbStyle.Render("█")
		} else {
			cells[i] = trackStyle.Render("│")
		}
	}

	return cells
}

func (m Model) renderRow(row viewport.Row) string {
	width := m.width - 4
	if width < 10 {
		width = 10
	}

	switch {
	case row.Errored:
		return errorStyle.Render(truncate(fmt.Sprintf("%6d  load failed — retry by scrolling", row.Index), width))
	case row.Placeholder:
		return placeholderStyle.Render(truncate(fmt.Sprintf("%6d  %s", row.Index, itemLine(row.Item)), width))
	default:
		return truncate(fmt.Sprintf("%6d  %s", row.Index, itemLine(row.Item)), width)
	}
}

// itemLine formats the interesting fields of an item, masked or real.
func itemLine(item types.Item) string {
	if item == nil {
		return "…"
	}

	parts := make([]string, 0, 3)
	for _, field := range []string{"name", "email", "role"} {
		if v, ok := item[field]; ok {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}
	if len(parts) == 0 {
		return item.ID()
	}

	return strings.Join(parts, "  ")
}

func (m Model) viewFooter() string {
	return helpStyle.Render("j/k scroll · pgup/pgdn page · f flick · g/G/c jump · q quit")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}

	return s[:width-1] + "…"
}
