// Package tui provides the BubbleTea-based terminal dashboard for fleetdash.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bkonkle/fleetdash/internal/fleet"
)

// Colors used throughout the TUI.
var (
	ColorPrimary   = lipgloss.Color("12")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorWarning   = lipgloss.Color("226") // Yellow
	ColorError     = lipgloss.Color("196") // Red
	ColorInfo      = lipgloss.Color("14")  // Cyan
	ColorMuted     = lipgloss.Color("240") // Dark gray
	ColorOrange    = lipgloss.Color("208") // Orange
)

// Base styles.
var (
	// HeaderStyle is used for card and modal headers.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SelectedStyle highlights the currently selected card.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("57"))

	// MutedStyle is for secondary/muted text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// SuccessStyle is for success indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// WarningStyle is for warning indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// ErrorStyle is for error indicators.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	// InfoStyle is for informational text.
	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	// HelpStyle is for help text at the bottom.
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// TitleStyle is for the main title bar.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// StatusBarStyle is for the status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Background(lipgloss.Color("236"))

	// LiveStyle marks a modal that refreshes on its own.
	LiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(ColorError).
			Padding(0, 1)
)

// StatusIcon returns a styled icon for a device status.
func StatusIcon(status fleet.Status) string {
	switch status {
	case fleet.StatusRunning:
		return lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Render("●")
	case fleet.StatusStarting:
		return lipgloss.NewStyle().
			Foreground(ColorWarning).
			Render("◐")
	case fleet.StatusStopped:
		return lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Render("○")
	default:
		return "?"
	}
}

// StatusColor returns the color for a device status.
func StatusColor(status fleet.Status) lipgloss.Color {
	switch status {
	case fleet.StatusRunning:
		return ColorSuccess
	case fleet.StatusStarting:
		return ColorWarning
	case fleet.StatusStopped:
		return ColorSecondary
	default:
		return lipgloss.Color("255")
	}
}

// LogLevelColor returns the color for a log level.
func LogLevelColor(level string) lipgloss.Color {
	switch level {
	case "error":
		return ColorError
	case "warn":
		return ColorWarning
	case "success":
		return ColorSuccess
	case "debug":
		return ColorMuted
	default:
		return lipgloss.Color("255")
	}
}

// PaneBorder returns a border style for cards and modals.
func PaneBorder(focused bool) lipgloss.Style {
	borderColor := ColorMuted
	if focused {
		borderColor = ColorPrimary
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)
}

// ModalStyle frames an overlay of the given width.
func ModalStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(0, 1).
		Width(width)
}

// Truncate truncates a string to maxLen runes, adding "..." if needed.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(0, maxLen)])
	}
	return string(r[:maxLen-3]) + "..."
}
