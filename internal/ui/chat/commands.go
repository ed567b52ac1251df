// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the slash command registry.
package chat

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/export"
	"github.com/jeranaias/alfred-tui/internal/ollama"
	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command. args is everything after the
// command name, trimmed, so paths with spaces survive.
type CommandHandler func(m *Model, args string) (tea.Model, tea.Cmd)

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"help":   handleHelpCommand,
	"h":      handleHelpCommand,
	"?":      handleHelpCommand,
	"quit":   handleQuitCommand,
	"q":      handleQuitCommand,
	"exit":   handleQuitCommand,
	"attach": handleAttachCommand,
	"a":      handleAttachCommand,
	"detach": handleDetachCommand,
	"export": handleExportCommand,
	"e":      handleExportCommand,
	"copy":   handleCopyCommand,
	"y":      handleCopyCommand,
	"models": handleModelsCommand,
}

// commandNames returns the primary command names for completion.
func commandNames() []string {
	return []string{"/attach", "/copy", "/detach", "/export", "/help", "/models", "/quit"}
}

// handleCommand dispatches a slash command.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	name, args, _ := strings.Cut(strings.TrimPrefix(content, "/"), " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	handler, ok := commandHandlers[name]
	if !ok {
		cmd := m.setStatus(styles.StatusWarning, "Unknown command /"+name+"; type /help")
		return m, cmd
	}
	return handler(&m, args)
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, _ string) (tea.Model, tea.Cmd) {
	m.addNotice(helpText(m.keys), styles.StatusInfo)
	return *m, nil
}

func handleQuitCommand(m *Model, _ string) (tea.Model, tea.Cmd) {
	return m.quit()
}

func handleAttachCommand(m *Model, args string) (tea.Model, tea.Cmd) {
	if args == "" {
		m.openPrompt(promptAttach)
		return *m, nil
	}
	return m.attach(args)
}

func handleDetachCommand(m *Model, _ string) (tea.Model, tea.Cmd) {
	att := m.session.Attachment()
	if att.IsEmpty() && att.Path == "" {
		cmd := m.setStatus(styles.StatusInfo, "No file attached")
		return *m, cmd
	}
	m.session.ClearAttachment()
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.addNotice("[Detached file: "+att.DisplayName+"]", styles.StatusInfo)
	return *m, nil
}

func handleExportCommand(m *Model, args string) (tea.Model, tea.Cmd) {
	return m.exportTo(args)
}

func handleCopyCommand(m *Model, _ string) (tea.Model, tea.Cmd) {
	return m.copyLastReply()
}

func handleModelsCommand(m *Model, _ string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		cmd := m.setStatus(styles.StatusError, "Ollama client not configured")
		return *m, cmd
	}
	client, ctx := m.client, m.ctx
	return *m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		models, err := client.ListModels(ctx)
		return OllamaModelsMsg{Models: models, Error: err}
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// attach extracts path off the UI loop. The attachment only changes when
// the result arrives and extraction succeeded.
func (m Model) attach(path string) (tea.Model, tea.Cmd) {
	path = strings.TrimSpace(expandHome(unquote(path)))
	if path == "" {
		cmd := m.setStatus(styles.StatusInfo, "No file given")
		return m, cmd
	}
	extract := m.extract
	return m, func() tea.Msg {
		abs, err := filepath.Abs(path)
		if err != nil {
			return AttachmentLoadedMsg{Path: path, Name: filepath.Base(path), Error: err}
		}
		text, err := extract(abs)
		return AttachmentLoadedMsg{Path: abs, Name: filepath.Base(abs), Text: text, Error: err}
	}
}

// exportTo writes a snapshot of the transcript. The format follows the
// file extension.
func (m Model) exportTo(path string) (tea.Model, tea.Cmd) {
	if m.session.Len() == 0 {
		cmd := m.setStatus(styles.StatusInfo, "Nothing to export yet")
		return m, cmd
	}
	target := m.resolveExportPath(path)
	tr := &export.Transcript{
		Model:      m.modelName(),
		Attachment: m.session.Attachment().DisplayName,
		Turns:      m.session.Turns(),
		ExportedAt: m.now(),
	}
	return m, func() tea.Msg {
		written, err := export.ExportToFile(tr, target, nil)
		if err != nil {
			written = target
		}
		return ExportDoneMsg{Path: written, Error: err}
	}
}

func (m Model) resolveExportPath(path string) string {
	return export.ResolvePath(m.exportDir, unquote(path), m.now())
}

// copyLastReply writes the last assistant reply to the clipboard verbatim.
func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	if !hasAssistantTurn(m.session.Turns()) {
		cmd := m.setStatus(styles.StatusInfo, "No reply to copy yet")
		return m, cmd
	}
	reply := m.session.LastReply()
	write := m.clipboard
	return m, func() tea.Msg {
		err := write(reply)
		return CopyDoneMsg{Length: utf8.RuneCountInString(reply), Error: err}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func hasAssistantTurn(turns []session.Turn) bool {
	for _, t := range turns {
		if t.Role == session.RoleAssistant {
			return true
		}
	}
	return false
}

func helpText(keys KeyMap) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("  /attach <path>   attach a .pdf, .docx or .txt file as context\n")
	b.WriteString("  /detach          drop the attached file\n")
	b.WriteString("  /export [path]   save the transcript (.txt, .md or .json)\n")
	b.WriteString("  /copy            copy the last reply to the clipboard\n")
	b.WriteString("  /models          list models available to Ollama\n")
	b.WriteString("  /quit            exit\n")
	b.WriteString("  //text           send a message starting with /\n")
	b.WriteString("Keys:\n")
	for _, group := range keys.FullHelp() {
		for _, kb := range group {
			h := kb.Help()
			b.WriteString("  " + padRight(h.Key, 16) + " " + h.Desc + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatModels(models []ollama.ModelInfo, current string) string {
	if len(models) == 0 {
		return "No models installed. Pull one with: ollama pull " + current
	}
	sorted := make([]ollama.ModelInfo, len(models))
	copy(sorted, models)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("Available models:")
	for _, mi := range sorted {
		marker := "  "
		if mi.Name == current {
			marker = "* "
		}
		b.WriteString("\n" + marker + padRight(mi.Name, 28) + " " + mi.FormatSize())
	}
	return b.String()
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
