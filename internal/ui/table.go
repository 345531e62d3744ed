package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Column defines a table column with a header label and width.
type Column struct {
	Header string
	Width  int
}

// RenderTable renders rows as a fixed-width table with column headers.
func RenderTable(columns []Column, rows [][]string) string {
	var b strings.Builder

	for i, col := range columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(HeaderStyle.Render(pad(col.Header, col.Width)))
	}
	b.WriteString("\n")

	for i, col := range columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(DimStyle.Render(strings.Repeat("─", col.Width)))
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i, col := range columns {
			if i > 0 {
				b.WriteString("  ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			b.WriteString(pad(val, col.Width))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Chip is one selectable entry in a picker row.
type Chip struct {
	Label    string
	Disabled bool
}

// RenderChips lays chips out in rows of perRow, highlighting selected.
func RenderChips(chips []Chip, selected, perRow int) string {
	if perRow < 1 {
		perRow = len(chips)
	}
	var b strings.Builder
	for i, c := range chips {
		if i > 0 && i%perRow == 0 {
			b.WriteString("\n")
		}
		style := ChipStyle
		switch {
		case i == selected:
			style = SelectedChipStyle
		case c.Disabled:
			style = DisabledChipStyle
		}
		b.WriteString(style.Render(c.Label))
	}
	return b.String()
}

// pad truncates or right-fills s to exactly width terminal cells.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.FillRight(s, width)
}
