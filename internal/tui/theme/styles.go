package theme

import (
	"github.com/charmbracelet/lipgloss"
)

var dialogBorder = lipgloss.Border{
	Top:         "─",
	Bottom:      "─",
	Left:        "│",
	Right:       "│",
	TopLeft:     "┌",
	TopRight:    "┐",
	BottomLeft:  "└",
	BottomRight: "┘",
}

// CreateSectionHeaderStyle styles the right panel headings
func CreateSectionHeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorBrightCyan)).
		MarginBottom(1)
}

// CreateInfoTextStyle styles detail lines
func CreateInfoTextStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWhite))
}

// CreateSecondaryTextStyle styles hints, counts and separators
func CreateSecondaryTextStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBrightBlack)).
		Italic(true)
}

// CreateDialogStyle creates the floating dialog box. An empty borderColor
// uses the accent color.
func CreateDialogStyle(width int, borderColor string) lipgloss.Style {
	if borderColor == "" {
		borderColor = ColorBrightBlue
	}
	return lipgloss.NewStyle().
		Border(dialogBorder).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(2, 3).
		Width(width).
		Align(lipgloss.Center).
		Foreground(lipgloss.Color(ColorWhite))
}

// CreatePromptStyle styles the title line of a dialog
func CreatePromptStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBrightYellow)).
		Bold(true).
		Align(lipgloss.Center)
}

// CreateLoadingStyle styles spinners and loading text
func CreateLoadingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightYellow))
}

// CreateErrorStyle styles rejection reasons and failures
func CreateErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrightRed))
}
