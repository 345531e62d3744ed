package codeinput

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/salon-booking/cli/internal/ui"
)

// CompletedMsg is emitted once the last empty cell is filled.
type CompletedMsg struct {
	Code string
}

// KeyMap defines the widget's key bindings.
type KeyMap struct {
	Delete key.Binding
	Left   key.Binding
	Right  key.Binding
	Clear  key.Binding
}

// DefaultKeyMap returns the bindings used by NewModel.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Delete: key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("⌫", "delete")),
		Left:   key.NewBinding(key.WithKeys("left", "shift+tab"), key.WithHelp("←", "prev cell")),
		Right:  key.NewBinding(key.WithKeys("right", "tab"), key.WithHelp("→", "next cell")),
		Clear:  key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear")),
	}
}

// cell is the focus handle for one box on screen.
type cell struct {
	focused bool
	group   []*cell
}

func (c *cell) AcquireFocus() {
	for _, other := range c.group {
		other.focused = false
	}
	c.focused = true
}

// Model renders a Controller as a row of boxes and feeds it key events.
type Model struct {
	KeyMap KeyMap
	Masked bool

	ctrl      *Controller
	cells     []*cell
	completed string
	err       string
}

// NewModel builds a widget with length cells. Extra options are passed to the
// underlying Controller after the widget's own focus handles.
func NewModel(length int, opts ...Option) Model {
	if length < 1 {
		length = DefaultLength
	}
	cells := make([]*cell, length)
	handles := make([]FocusHandle, length)
	for i := range cells {
		cells[i] = &cell{}
		handles[i] = cells[i]
	}
	for _, c := range cells {
		c.group = cells
	}
	cells[0].focused = true

	m := Model{KeyMap: DefaultKeyMap(), cells: cells}
	all := append([]Option{WithFocusHandles(handles)}, opts...)
	m.ctrl = New(length, all...)
	return m
}

// Controller exposes the underlying cell buffer.
func (m Model) Controller() *Controller { return m.ctrl }

// Code returns the joined code.
func (m Model) Code() string { return m.ctrl.Code() }

// Focused returns the index of the focused cell.
func (m Model) Focused() int { return m.ctrl.Focus() }

// Err returns the inline error currently displayed, if any.
func (m Model) Err() string { return m.err }

// SetError shows msg under the cells and clears them for another attempt.
func (m *Model) SetError(msg string) {
	m.err = msg
	m.completed = ""
	m.ctrl.Reset()
}

// Reset clears the cells and any error.
func (m *Model) Reset() {
	m.err = ""
	m.completed = ""
	m.ctrl.Reset()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	focus := m.ctrl.Focus()
	switch {
	case key.Matches(keyMsg, m.KeyMap.Delete):
		m.ctrl.Delete(focus)
	case key.Matches(keyMsg, m.KeyMap.Left):
		m.ctrl.SetFocus(focus - 1)
	case key.Matches(keyMsg, m.KeyMap.Right):
		m.ctrl.SetFocus(focus + 1)
	case key.Matches(keyMsg, m.KeyMap.Clear):
		m.ctrl.Reset()
	case keyMsg.Type == tea.KeyRunes:
		if keyMsg.Paste || len(keyMsg.Runes) > 1 {
			m.ctrl.Paste(focus, string(keyMsg.Runes))
		} else if m.ctrl.Enter(focus, string(keyMsg.Runes)) {
			m.err = ""
		}
	}

	return m, m.checkComplete()
}

// checkComplete emits CompletedMsg once per fill.
func (m *Model) checkComplete() tea.Cmd {
	if !m.ctrl.Complete() {
		m.completed = ""
		return nil
	}
	code := m.ctrl.Code()
	if code == m.completed {
		return nil
	}
	m.completed = code
	return func() tea.Msg { return CompletedMsg{Code: code} }
}

func (m Model) View() string {
	boxes := make([]string, len(m.cells))
	for i, c := range m.cells {
		val := m.ctrl.Slot(i)
		switch {
		case val == "":
			val = " "
		case m.Masked:
			val = "•"
		}
		style := ui.CellStyle
		if c.focused {
			style = ui.FocusedCellStyle
		}
		boxes[i] = style.Render(val)
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(ui.ErrorStyle.Render(m.err))
	}
	return b.String()
}
