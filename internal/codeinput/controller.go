package codeinput

import "strings"

// DefaultLength is the number of cells used when no valid length is given.
const DefaultLength = 6

// FocusHandle is anything that can take keyboard focus for a single cell.
type FocusHandle interface {
	AcquireFocus()
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnChange registers an observer called after every mutation with the
// current joined code.
func WithOnChange(fn func(code string)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithOnComplete registers an observer called whenever an entry fills the
// last empty cell.
func WithOnComplete(fn func(code string)) Option {
	return func(c *Controller) { c.onComplete = fn }
}

// WithFocusHandles attaches one focus handle per cell. The controller does
// not own them.
func WithFocusHandles(handles []FocusHandle) Option {
	return func(c *Controller) { c.handles = handles }
}

// Controller holds a fixed number of single-digit cells.
type Controller struct {
	slots []string
	focus int

	onChange   func(string)
	onComplete func(string)
	handles    []FocusHandle
}

// New creates an empty controller with length cells.
func New(length int, opts ...Option) *Controller {
	if length < 1 {
		length = DefaultLength
	}
	c := &Controller{slots: make([]string, length)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of cells.
func (c *Controller) Len() int { return len(c.slots) }

// Focus returns the index of the focused cell.
func (c *Controller) Focus() int { return c.focus }

// Slot returns the value of cell i, or "" when i is out of range.
func (c *Controller) Slot(i int) string {
	if !c.inRange(i) {
		return ""
	}
	return c.slots[i]
}

// Slots returns a copy of the cells.
func (c *Controller) Slots() []string {
	out := make([]string, len(c.slots))
	copy(out, c.slots)
	return out
}

// Code joins the cells in order. Empty cells contribute nothing.
func (c *Controller) Code() string {
	return strings.Join(c.slots, "")
}

// Filled reports how many cells hold a digit.
func (c *Controller) Filled() int {
	n := 0
	for _, s := range c.slots {
		if s != "" {
			n++
		}
	}
	return n
}

// Complete reports whether every cell holds a digit.
func (c *Controller) Complete() bool {
	return c.Filled() == len(c.slots)
}

// Enter handles text typed into cell i. Only the last character counts.
// Non-digits are dropped without touching state. Empty text clears the cell.
func (c *Controller) Enter(i int, text string) bool {
	if !c.inRange(i) {
		return false
	}
	if text == "" {
		if c.slots[i] == "" {
			return false
		}
		c.slots[i] = ""
		c.changed(false)
		return true
	}

	last := text[len(text)-1:]
	if !isDigit(last[0]) {
		return false
	}

	c.slots[i] = last
	if i < len(c.slots)-1 {
		c.moveFocus(i + 1)
	}
	c.changed(true)
	return true
}

// Delete handles backspace at cell i. A filled cell is cleared in place; an
// empty cell clears the previous one and moves focus back to it.
func (c *Controller) Delete(i int) bool {
	if !c.inRange(i) {
		return false
	}
	switch {
	case c.slots[i] != "":
		c.slots[i] = ""
	case i > 0:
		c.slots[i-1] = ""
		c.moveFocus(i - 1)
	default:
		return false
	}
	c.changed(false)
	return true
}

// Paste spreads the digits of text across the cells starting at i, skipping
// anything that is not a digit. It returns the number of cells written.
func (c *Controller) Paste(i int, text string) int {
	if !c.inRange(i) {
		return 0
	}
	n := 0
	pos := i
	for j := 0; j < len(text) && pos < len(c.slots); j++ {
		if !isDigit(text[j]) {
			continue
		}
		c.slots[pos] = string(text[j])
		pos++
		n++
	}
	if n == 0 {
		return 0
	}
	if pos > len(c.slots)-1 {
		pos = len(c.slots) - 1
	}
	c.moveFocus(pos)
	c.changed(true)
	return n
}

// Reset clears every cell and focuses the first one.
func (c *Controller) Reset() {
	dirty := c.Filled() > 0
	for i := range c.slots {
		c.slots[i] = ""
	}
	c.moveFocus(0)
	if dirty {
		c.changed(false)
	}
}

// SetFocus moves focus to cell i without touching the cells.
func (c *Controller) SetFocus(i int) bool {
	if !c.inRange(i) || i == c.focus {
		return false
	}
	c.moveFocus(i)
	return true
}

func (c *Controller) moveFocus(i int) {
	c.focus = i
	if i < len(c.handles) && c.handles[i] != nil {
		c.handles[i].AcquireFocus()
	}
}

func (c *Controller) changed(grew bool) {
	code := c.Code()
	if c.onChange != nil {
		c.onChange(code)
	}
	if grew && len(code) == len(c.slots) && c.onComplete != nil {
		c.onComplete(code)
	}
}

func (c *Controller) inRange(i int) bool {
	return i >= 0 && i < len(c.slots)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
