// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface. Background work never touches the session; it reports back
// with one of these messages and the Update loop applies the result.
package chat

import (
	"time"

	"github.com/jeranaias/alfred-tui/internal/ollama"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that the request for a stream has been issued.
type StreamStartMsg struct {
	StreamID  string
	StartTime time.Time
}

// StreamTokenMsg delivers one token of a stream.
type StreamTokenMsg struct {
	StreamID string
	Token    string
}

// StreamCompleteMsg is delivered exactly once per stream with the full
// reply, whatever the outcome. Err is the reason the stream ended early.
type StreamCompleteMsg struct {
	StreamID string
	Reply    string
	Err      error
	Duration time.Duration
	// Stats is zero when the client does not report statistics.
	Stats ollama.StreamStats
}

// =============================================================================
// OLLAMA MESSAGES
// =============================================================================

// OllamaStatusMsg reports whether the server answered a health check.
type OllamaStatusMsg struct {
	Running bool
	Error   error
}

// OllamaModelsMsg delivers the list of available models.
type OllamaModelsMsg struct {
	Models []ollama.ModelInfo
	Error  error
}

// =============================================================================
// ATTACHMENT MESSAGES
// =============================================================================

// AttachmentLoadedMsg carries the result of extracting a file.
type AttachmentLoadedMsg struct {
	Path  string // absolute path
	Name  string // display name
	Text  string
	Error error
}

// AttachmentChangedMsg reports new text for the watched attachment.
type AttachmentChangedMsg struct {
	Path string
	Text string
}

// =============================================================================
// EXPORT AND CLIPBOARD MESSAGES
// =============================================================================

// ExportDoneMsg reports the result of writing the transcript.
type ExportDoneMsg struct {
	Path  string
	Error error
}

// CopyDoneMsg reports the result of copying the last reply.
type CopyDoneMsg struct {
	Length int
	Error  error
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// clearStatusMsg clears the status line if it still shows message seq.
type clearStatusMsg struct {
	seq int
}
