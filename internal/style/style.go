package style

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	BaseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	HeaderStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	HighlightFontStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	HelpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ErrorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SuccessStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	PausedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// NewSpinner returns the spinner shown while transfers are active
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = HighlightFontStyle
	return s
}

// NewTableStyles returns the transfers table styles
func NewTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}
