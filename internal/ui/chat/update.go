// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/alfred-tui/internal/document"
	"github.com/jeranaias/alfred-tui/internal/ollama"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// statusTimeout is how long a status message stays on screen.
const statusTimeout = 5 * time.Second

// Layout rows outside the viewport: header, bordered input, status bar.
const (
	headerRows = 1
	inputRows  = 3
	statusRows = 1
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case StreamStartMsg:
		if p, ok := m.pending[msg.StreamID]; ok {
			p.started = msg.StartTime
		}
		return m, nil

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case OllamaStatusMsg:
		return m.handleOllamaStatus(msg)

	case OllamaModelsMsg:
		return m.handleModels(msg)

	case AttachmentLoadedMsg:
		return m.handleAttachmentLoaded(msg)

	case AttachmentChangedMsg:
		return m.handleAttachmentChanged(msg)

	case ExportDoneMsg:
		return m.handleExportDone(msg)

	case CopyDoneMsg:
		return m.handleCopyDone(msg)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if len(m.pending) > 0 {
			m.refreshViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := msg.Height - headerRows - inputRows - statusRows
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight

	m.input.Width = msg.Width - 8
	if m.input.Width < 10 {
		m.input.Width = 10
	}

	if m.renderMarkdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(m.contentWidth()),
		)
		if err != nil {
			m.logger.Warn("markdown renderer unavailable", zap.Error(err))
			r = nil
		}
		m.renderer = r
	}
	// Cached renders depend on the width.
	m.rendered = make(map[string]string)

	m.ready = true
	m.refreshViewport()
}

// contentWidth is the wrap width for message bodies.
func (m Model) contentWidth() int {
	return calculateContentWidth(m.width, 4)
}

// refreshViewport re-renders the transcript, keeping the view pinned to
// the bottom if it was there.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Cancel):
		if m.prompt != promptMessage {
			m.closePrompt()
			cmd := m.setStatus(styles.StatusInfo, "Cancelled")
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.Complete):
		return m.handleTabCompletion()

	case key.Matches(msg, m.keys.Attach):
		m.openPrompt(promptAttach)
		return m, nil

	case key.Matches(msg, m.keys.Export):
		m.openPrompt(promptExport)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.Help):
		m.addNotice(helpText(m.keys), styles.StatusInfo)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.cancel()
	return m, tea.Quit
}

// openPrompt switches the input line to collecting a path. The message
// being typed is kept and restored afterwards.
func (m *Model) openPrompt(mode promptMode) {
	if m.prompt == promptMessage {
		m.draft = m.input.Value()
	}
	m.prompt = mode
	m.input.Reset()
	switch mode {
	case promptAttach:
		m.input.Placeholder = "Path to a .pdf, .docx or .txt file"
	case promptExport:
		m.input.Placeholder = "Export path (.txt, .md or .json); empty for default"
	}
}

func (m *Model) closePrompt() {
	m.prompt = promptMessage
	m.input.Placeholder = "Type a message, or /help"
	m.input.SetValue(m.draft)
	m.input.CursorEnd()
	m.draft = ""
}

// =============================================================================
// SEND
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	mode := m.prompt

	switch mode {
	case promptAttach:
		m.closePrompt()
		return m.attach(value)
	case promptExport:
		m.closePrompt()
		return m.exportTo(value)
	}

	m.input.Reset()

	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "/") {
		if !strings.HasPrefix(trimmed, "//") {
			return m.handleCommand(trimmed)
		}
		// "//" sends a message that starts with a slash.
		value = trimmed[1:]
	}
	return m.send(value)
}

// send appends the user turn and starts a stream for it. Earlier streams
// keep running; each one owns a pending entry keyed by its stream ID.
func (m Model) send(text string) (tea.Model, tea.Cmd) {
	if !m.session.AppendUserTurn(text) {
		return m, nil
	}
	turns := m.session.Turns()
	m.entries = append(m.entries, entry{kind: entryTurn, id: turns[len(turns)-1].ID, turn: turns[len(turns)-1]})

	prompt := m.session.ComposePrompt()
	streamID := uuid.NewString()
	m.pending[streamID] = &pendingStream{
		started: time.Now(),
		state:   ollama.StateConnecting,
	}
	m.entries = append(m.entries, entry{kind: entryPending, id: streamID})

	m.logger.Debug("sending prompt",
		zap.String("stream_id", streamID),
		zap.Int("turns", len(turns)),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("in_flight", len(m.pending)))

	m.refreshViewport()
	m.viewport.GotoBottom()

	if m.client == nil {
		return m, func() tea.Msg {
			return StreamCompleteMsg{StreamID: streamID, Err: ollama.ErrNotRunning}
		}
	}
	return m, m.runner.Cmd(m.ctx, streamID, prompt)
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	p, ok := m.pending[msg.StreamID]
	if !ok {
		return m, nil
	}
	p.buf.WriteString(msg.Token)
	p.tokens++
	p.state = ollama.StateStreaming
	m.refreshViewport()
	return m, nil
}

// handleStreamComplete records the assistant turn. It is appended even
// when the reply is empty or the stream failed.
func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	p, ok := m.pending[msg.StreamID]
	if !ok {
		return m, nil
	}
	delete(m.pending, msg.StreamID)

	m.session.AppendAssistantTurn(msg.Reply)
	turns := m.session.Turns()
	turn := turns[len(turns)-1]
	for i := range m.entries {
		if m.entries[i].kind == entryPending && m.entries[i].id == msg.StreamID {
			m.entries[i] = entry{kind: entryTurn, id: turn.ID, turn: turn}
			break
		}
	}

	var cmd tea.Cmd
	switch {
	case msg.Err == nil:
		p.state = ollama.StateCompleted
		m.ollamaChecked, m.ollamaUp = true, true
		m.logger.Debug("stream completed",
			zap.String("stream_id", msg.StreamID),
			zap.Int("tokens", p.tokens),
			zap.Duration("duration", msg.Duration))
		if msg.Stats.Tokens > 0 {
			cmd = m.setStatus(styles.StatusInfo, formatStats(msg.Stats, msg.Duration))
		}
	case errors.Is(msg.Err, context.Canceled):
		p.state = ollama.StateFailed
	default:
		p.state = ollama.StateFailed
		m.logger.Warn("stream failed",
			zap.String("stream_id", msg.StreamID),
			zap.Int("tokens", p.tokens),
			zap.Error(msg.Err))
		if ollama.IsNotRunning(msg.Err) {
			m.ollamaChecked, m.ollamaUp = true, false
		}
		cmd = m.setStatus(styles.StatusError, describeStreamError(msg.Err, m.modelName()))
	}

	m.refreshViewport()
	return m, cmd
}

// formatStats renders the status line shown after a reply completes.
func formatStats(stats ollama.StreamStats, elapsed time.Duration) string {
	text := formatInt(stats.Tokens) + " tokens in " + elapsed.Round(100*time.Millisecond).String()
	if stats.TokensPerSecond > 0 {
		text += " (" + strconv.FormatFloat(stats.TokensPerSecond, 'f', 1, 64) + " tok/s)"
	}
	if stats.Skipped > 0 {
		text += ", " + formatInt(stats.Skipped) + " malformed lines skipped"
	}
	return text
}

func describeStreamError(err error, model string) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Ollama is not running. Start it with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "Model " + model + " not found. Pull it with: ollama pull " + model
	case ollama.IsTimeout(err):
		return "Request timed out; partial reply kept"
	default:
		return "Reply interrupted: " + err.Error()
	}
}

// =============================================================================
// SERVER STATUS
// =============================================================================

func (m Model) handleOllamaStatus(msg OllamaStatusMsg) (tea.Model, tea.Cmd) {
	m.ollamaChecked = true
	m.ollamaUp = msg.Running
	if !msg.Running {
		m.logger.Info("ollama not reachable", zap.Error(msg.Error))
		cmd := m.setStatus(styles.StatusWarning, "Ollama is not reachable; replies will fail until it starts")
		return m, cmd
	}
	return m, nil
}

func (m Model) handleModels(msg OllamaModelsMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.logger.Warn("list models failed", zap.Error(msg.Error))
		cmd := m.setStatus(styles.StatusError, "Could not list models: "+msg.Error.Error())
		return m, cmd
	}
	m.addNotice(formatModels(msg.Models, m.modelName()), styles.StatusInfo)
	return m, nil
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func (m Model) handleAttachmentLoaded(msg AttachmentLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.logger.Warn("attachment extraction failed",
			zap.String("path", msg.Path),
			zap.Error(msg.Error))
		if errors.Is(msg.Error, document.ErrUnsupportedFormat) {
			cmd := m.setStatus(styles.StatusWarning,
				"Unsupported file type; use "+strings.Join(document.SupportedExtensions(), ", "))
			return m, cmd
		}
		cmd := m.setStatus(styles.StatusError, "Could not read "+msg.Name)
		return m, cmd
	}

	m.session.SetAttachment(msg.Text, msg.Name, msg.Path)
	m.addNotice("[Attached file: "+msg.Name+"]", styles.StatusSuccess)
	m.logger.Info("attachment set",
		zap.String("path", msg.Path),
		zap.Int("chars", len(msg.Text)))

	if m.watcher != nil {
		if err := m.watcher.Watch(msg.Path); err != nil {
			m.logger.Warn("cannot watch attachment", zap.String("path", msg.Path), zap.Error(err))
		}
	}
	return m, nil
}

// handleAttachmentChanged swaps in re-extracted text, but only if the file
// is still the current attachment.
func (m Model) handleAttachmentChanged(msg AttachmentChangedMsg) (tea.Model, tea.Cmd) {
	att := m.session.Attachment()
	if att.Path == "" || att.Path != msg.Path {
		return m, nil
	}
	m.session.SetAttachment(msg.Text, att.DisplayName, att.Path)
	m.addNotice("[Reloaded file: "+att.DisplayName+"]", styles.StatusInfo)
	return m, nil
}

func (m Model) handleExportDone(msg ExportDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.logger.Warn("export failed", zap.String("path", msg.Path), zap.Error(msg.Error))
		cmd := m.setStatus(styles.StatusError, "Export failed: "+msg.Error.Error())
		return m, cmd
	}
	m.logger.Info("transcript exported", zap.String("path", msg.Path))
	cmd := m.setStatus(styles.StatusSuccess, "Exported to "+filepath.Clean(msg.Path))
	return m, cmd
}

func (m Model) handleCopyDone(msg CopyDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.logger.Warn("clipboard write failed", zap.Error(msg.Error))
		cmd := m.setStatus(styles.StatusError, "Clipboard unavailable")
		return m, cmd
	}
	cmd := m.setStatus(styles.StatusSuccess, "Copied last reply ("+formatInt(msg.Length)+" chars)")
	return m, cmd
}

// =============================================================================
// STATUS AND NOTICES
// =============================================================================

// setStatus shows a one-line message that clears itself after statusTimeout.
func (m *Model) setStatus(kind styles.StatusKind, text string) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusKind = kind
	seq := m.statusSeq
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// addNotice appends a display-only line to the transcript view. Notices are
// never part of the session.
func (m *Model) addNotice(text string, kind styles.StatusKind) {
	m.entries = append(m.entries, entry{kind: entryNotice, text: text, status: kind})
	m.refreshViewport()
	m.viewport.GotoBottom()
}

func (m Model) modelName() string {
	if m.client == nil {
		return ollama.DefaultModel
	}
	return m.client.Model()
}
