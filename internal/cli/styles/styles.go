// Package styles holds the lipgloss styles shared by the CLI commands.
package styles

import (
	"charm.land/lipgloss/v2"
)

var (
	// Text styles
	TitleStyle    lipgloss.Style
	SubtitleStyle lipgloss.Style
	ValueStyle    lipgloss.Style

	// Status styles
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	OfflineStyle lipgloss.Style
)

func init() {
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	ValueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15"))

	SuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10"))

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9"))

	WarningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	OfflineStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Italic(true)
}
