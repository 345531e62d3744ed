package ui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	ActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	PromptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	// Code entry cells
	CellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1).
			MarginRight(1)
	FocusedCellStyle = CellStyle.
				BorderForeground(lipgloss.Color("13")).
				Bold(true)

	// Date/time pickers
	ChipStyle         = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("7"))
	SelectedChipStyle = ChipStyle.Background(lipgloss.Color("13")).Foreground(lipgloss.Color("0")).Bold(true)
	DisabledChipStyle = ChipStyle.Foreground(lipgloss.Color("8")).Strikethrough(true)
)
