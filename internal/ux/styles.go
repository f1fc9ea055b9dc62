package ux

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the lipgloss styles shared by command output and the TUI.
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Help        lipgloss.Style
	Pill        lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")). // Light yellow
			Bold(true).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Pill: lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true),
	}
}

var badgeColors = map[string]lipgloss.Color{
	"proposed":  "33",  // Blue
	"called":    "214", // Orange
	"converted": "34",  // Green
	"trash":     "241",
	"ready":     "34",
	"pending":   "214",
	"answered":  "34",
	"ai":        "135", // Violet
	"standard":  "33",
}

// Badge renders label as a colored pill. Colors are keyed by the label's
// value, e.g. a project status.
func (s Styles) Badge(key, label string) string {
	color, ok := badgeColors[key]
	if !ok {
		color = "241"
	}
	return s.Pill.Background(color).Foreground(lipgloss.Color("255")).Render(label)
}

// OriginLabel names where a question came from.
func OriginLabel(ai bool) string {
	if ai {
		return "AI Generated"
	}
	return "Standard"
}

// OriginBadge renders OriginLabel as a badge.
func (s Styles) OriginBadge(ai bool) string {
	if ai {
		return s.Badge("ai", OriginLabel(true))
	}
	return s.Badge("standard", OriginLabel(false))
}
