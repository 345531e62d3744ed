package session

import "strings"

// InputBuffer manages text input state for a single form field.
type InputBuffer struct {
	Value string
	// MaxLen caps the field in runes. Zero means unlimited.
	MaxLen int
}

// Append adds runes to the buffer, dropping control characters and anything
// past MaxLen.
func (b *InputBuffer) Append(runes []rune) {
	if len(runes) == 0 {
		return
	}
	cur := []rune(b.Value)
	for _, r := range runes {
		if r < ' ' || r == 0x7f {
			continue
		}
		if b.MaxLen > 0 && len(cur) >= b.MaxLen {
			break
		}
		cur = append(cur, r)
	}
	b.Value = string(cur)
}

// Backspace removes the last rune.
func (b *InputBuffer) Backspace() {
	r := []rune(b.Value)
	if len(r) > 0 {
		b.Value = string(r[:len(r)-1])
	}
}

// Clear resets the buffer.
func (b *InputBuffer) Clear() {
	b.Value = ""
}

// Masked returns one bullet per rune, for password fields.
func (b *InputBuffer) Masked() string {
	return strings.Repeat("•", len([]rune(b.Value)))
}
