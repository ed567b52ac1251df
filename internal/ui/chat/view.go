// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains all rendering logic for the chat interface.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat screen.
// Layout: header (1 line) + transcript (viewport) + input (3 lines) + status (1 line).
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting alfred..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme

	var online string
	switch {
	case !m.ollamaChecked:
		online = t.HeaderMeta.Render("○ connecting")
	case m.ollamaUp:
		online = t.Online.Render("● online")
	default:
		online = t.Offline.Render("● offline")
	}

	left := t.HeaderTitle.Render("alfred") + t.HeaderMeta.Render(" | "+m.modelName()+" ") + online

	var right string
	if att := m.session.Attachment(); att.DisplayName != "" {
		right = t.Attachment.Render("[file: " + att.DisplayName + "]")
	}

	inner := m.width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return t.Header.Width(m.width).MaxWidth(m.width).Render(line)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every entry in display order.
func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return m.renderEmptyState()
	}

	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		switch e.kind {
		case entryTurn:
			parts = append(parts, m.renderTurn(e.turn))
		case entryPending:
			parts = append(parts, m.renderPending(e.id))
		case entryNotice:
			style := m.theme.Notice
			if e.status != styles.StatusInfo {
				style = m.theme.Status(e.status)
			}
			parts = append(parts, style.Render(wrapText(e.text, m.contentWidth())))
		}
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderEmptyState() string {
	hint := "Ask anything. /attach <file> adds a document as context; /help lists commands."
	return m.theme.Hint.Render(wrapText(hint, m.contentWidth()))
}

func (m Model) renderTurn(t session.Turn) string {
	if t.Role == session.RoleUser {
		return m.theme.UserLabel.Render(t.Role.String()) + "\n" +
			m.theme.MessageText.Render(wrapText(t.Text, m.contentWidth()))
	}

	body := m.renderReply(t)
	return m.theme.AssistantLabel.Render(t.Role.String()) + "\n" + body
}

// renderReply renders a completed reply, through glamour when enabled.
// Renders are cached by turn ID until the next resize.
func (m Model) renderReply(t session.Turn) string {
	if t.Text == "" {
		return m.theme.Hint.Render("(no reply)")
	}
	if m.renderer == nil {
		return m.theme.MessageText.Render(wrapText(t.Text, m.contentWidth()))
	}
	if cached, ok := m.rendered[t.ID]; ok {
		return cached
	}

	out, err := m.renderer.Render(t.Text)
	if err != nil {
		m.logger.Debug("markdown render failed", zap.String("turn", t.ID), zap.Error(err))
		out = wrapText(t.Text, m.contentWidth())
	}
	out = strings.Trim(out, "\n")
	m.rendered[t.ID] = out
	return out
}

// renderPending renders an in-flight reply as plain text with a cursor.
func (m Model) renderPending(id string) string {
	label := m.theme.AssistantLabel.Render(session.RoleAssistant.String())
	p, ok := m.pending[id]
	if !ok {
		return label
	}
	if p.buf.Len() == 0 {
		return label + "\n" + m.spinner.View() + m.theme.Hint.Render(" thinking...")
	}
	body := wrapText(p.buf.String(), m.contentWidth())
	return label + "\n" + m.theme.MessageText.Render(body) + m.theme.Cursor.Render("▌")
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	var label string
	switch m.prompt {
	case promptAttach:
		label = m.theme.PromptLabel.Render("Attach: ")
	case promptExport:
		label = m.theme.PromptLabel.Render("Export: ")
	}
	width := m.width - 2
	if width < 1 {
		width = 1
	}
	return m.theme.InputBorder.Width(width).Render(label + m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var right string
	if n := len(m.pending); n > 0 {
		tokens := 0
		for _, p := range m.pending {
			tokens += p.tokens
		}
		right = m.spinner.View() + " streaming"
		if n > 1 {
			right += " (" + formatInt(n) + " replies)"
		}
		right += " " + formatInt(tokens) + " tok"
	}

	var left string
	if m.status != "" {
		left = m.theme.Status(m.statusKind).Render(m.status)
	} else {
		left = m.theme.Hint.Render(m.shortHelp())
	}

	inner := m.width - 2
	if inner < 1 {
		inner = 1
	}
	room := inner - lipgloss.Width(right) - 1
	if room < 0 {
		room = 0
	}
	if lipgloss.Width(left) > room {
		if m.status != "" {
			left = m.theme.Status(m.statusKind).Render(truncateToWidth(m.status, room))
		} else {
			left = m.theme.Hint.Render(truncateToWidth(m.shortHelp(), room))
		}
	}
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return m.theme.StatusBar.Width(m.width).MaxWidth(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) shortHelp() string {
	var parts []string
	for _, kb := range m.keys.ShortHelp() {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
