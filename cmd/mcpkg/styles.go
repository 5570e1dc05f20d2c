// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output.
const (
	// ColorPrimary is used for titles and package ids.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is used for provenance chains and secondary text.
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is used for addon files, commands and config keys.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// skippedStyle marks plan entries that contribute nothing on this side.
	skippedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Strikethrough(true)

	// indentStyle indents the detail lines under a plan entry.
	indentStyle = lipgloss.NewStyle().
			PaddingLeft(4)
)
