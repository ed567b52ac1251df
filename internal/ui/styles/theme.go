// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the alfred TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Status kinds for the one-line status message.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style
	Attachment  lipgloss.Style
	Online      lipgloss.Style
	Offline     lipgloss.Style

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageText    lipgloss.Style
	Notice         lipgloss.Style
	Cursor         lipgloss.Style

	// Input and status
	InputBorder lipgloss.Style
	InputPrompt lipgloss.Style
	PromptLabel lipgloss.Style
	StatusBar   lipgloss.Style
	Spinner     lipgloss.Style
	Hint        lipgloss.Style

	statusStyles map[StatusKind]lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return newTheme(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewPlainTheme creates a theme without colors, for dumb terminals and tests.
func NewPlainTheme() *Theme {
	return newTheme(termenv.Ascii, true)
}

func newTheme(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// Plain reports whether the theme renders without color.
func (t *Theme) Plain() bool {
	return t.ColorProfile == termenv.Ascii
}

// GlamourStyle names the glamour standard style matching this theme.
func (t *Theme) GlamourStyle() string {
	switch {
	case t.Plain():
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// Status returns the style for a status message of the given kind.
func (t *Theme) Status(kind StatusKind) lipgloss.Style {
	if s, ok := t.statusStyles[kind]; ok {
		return s
	}
	return t.statusStyles[StatusInfo]
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	if t.Plain() {
		t.initPlainStyles()
		return
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Attachment = lipgloss.NewStyle().Foreground(Amber)
	t.Online = lipgloss.NewStyle().Foreground(Emerald)
	t.Offline = lipgloss.NewStyle().Foreground(Rose)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.MessageText = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Notice = lipgloss.NewStyle().Italic(true).Foreground(TextMuted)
	t.Cursor = lipgloss.NewStyle().Foreground(Purple)

	t.InputBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan)
	t.PromptLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)

	t.statusStyles = map[StatusKind]lipgloss.Style{
		StatusInfo:    lipgloss.NewStyle().Foreground(TextSecondary),
		StatusSuccess: lipgloss.NewStyle().Foreground(Emerald),
		StatusWarning: lipgloss.NewStyle().Foreground(Amber),
		StatusError:   lipgloss.NewStyle().Foreground(Rose),
	}
}

func (t *Theme) initPlainStyles() {
	plain := lipgloss.NewStyle()
	t.Header = plain
	t.HeaderTitle = plain
	t.HeaderMeta = plain
	t.Attachment = plain
	t.Online = plain
	t.Offline = plain
	t.UserLabel = plain
	t.AssistantLabel = plain
	t.MessageText = plain
	t.Notice = plain
	t.Cursor = plain
	t.InputBorder = plain
	t.InputPrompt = plain
	t.PromptLabel = plain
	t.StatusBar = plain
	t.Spinner = plain
	t.Hint = plain
	t.statusStyles = map[StatusKind]lipgloss.Style{StatusInfo: plain}
}
