// Package theme holds the shared lipgloss styles for the wizard UI.
package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// TitleStyle is used for step titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// ProgressStyle renders the "step n of m" indicator next to the title.
var ProgressStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// SubtleStyle is used for secondary text and key hints.
var SubtleStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle is used for validation and failure messages.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// SuccessStyle is used for the created-issue confirmation.
var SuccessStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// LinkStyle is used for tracker URLs.
var LinkStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Underline(true)

// SelectedItemStyle highlights the focused entry in a candidate or
// issue-type list.
var SelectedItemStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// HelpStyle is used for the keyboard shortcut footer.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)
