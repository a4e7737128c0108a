// Package cli renders pipeline results and pool status for the terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-ingest/internal/model"
)

// Palette.
var (
	accentColor  = lipgloss.Color("#E8A33D")
	incomeColor  = lipgloss.Color("#4ECDC4")
	reviewColor  = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	neutralColor = lipgloss.Color("#95E1D3")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#333")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	okStyle      = lipgloss.NewStyle().Foreground(incomeColor)
	reviewStyle  = lipgloss.NewStyle().Foreground(reviewColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	neutralStyle = lipgloss.NewStyle().Foreground(neutralColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	plainStyle   = lipgloss.NewStyle()

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(borderColor)

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// Icons.
const (
	okIcon     = "✓"
	errorIcon  = "✗"
	reviewIcon = "⚠️"
	moneyIcon  = "💸"
	keyIcon    = "🔑"
)

// typeStyle colors an amount by the direction money moved.
func typeStyle(t model.TransactionType) lipgloss.Style {
	switch t {
	case model.TypeIncome:
		return okStyle
	case model.TypeTransfer:
		return neutralStyle
	default:
		return plainStyle
	}
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return okStyle.Render(okIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return errorStyle.Render(errorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return reviewStyle.Render(reviewIcon + " " + message)
}

func renderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}
