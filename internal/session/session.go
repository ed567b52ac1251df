// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory chat session state.
package session

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AttachmentHeader introduces the attached document inside a prompt.
const AttachmentHeader = "[Context from attached file]"

// assistantCue is appended to every prompt so the model answers as the assistant.
const assistantCue = "Assistant:"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// String returns the role as it appears in prompts and exports.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// TURN / ATTACHMENT
// =============================================================================

// Turn is a single transcript entry.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Line renders the turn as "<role>: <text>".
func (t Turn) Line() string {
	return string(t.Role) + ": " + t.Text
}

// Attachment is the text of the most recently attached document.
type Attachment struct {
	Text        string
	DisplayName string
	Path        string
}

// IsEmpty reports whether there is no attachment text to send.
func (a Attachment) IsEmpty() bool {
	return a.Text == ""
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the chat state for one process lifetime.
type Session struct {
	mu         sync.RWMutex
	turns      []Turn
	attachment Attachment
	lastReply  string
}

// New creates an empty session.
func New() *Session {
	return &Session{
		turns: make([]Turn, 0, 16),
	}
}

// AppendUserTurn appends the trimmed input as a user turn.
// Empty or whitespace-only input is rejected and false is returned.
func (s *Session) AppendUserTurn(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, newTurn(RoleUser, text))
	return true
}

// AppendAssistantTurn appends an assistant turn and records it as the last
// reply. It always appends, even for an empty reply, so that a failed
// stream still shows up in the transcript.
func (s *Session) AppendAssistantTurn(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, newTurn(RoleAssistant, text))
	s.lastReply = text
}

// SetAttachment replaces the current attachment.
func (s *Session) SetAttachment(text, displayName, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachment = Attachment{
		Text:        text,
		DisplayName: displayName,
		Path:        path,
	}
}

// ClearAttachment drops the current attachment.
func (s *Session) ClearAttachment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachment = Attachment{}
}

// Attachment returns the current attachment.
func (s *Session) Attachment() Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attachment
}

// LastReply returns the most recently completed assistant reply.
func (s *Session) LastReply() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReply
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// =============================================================================
// PROMPT / EXPORT
// =============================================================================

// ComposePrompt builds the prompt for the next request: the attachment
// section (only when an attachment is set), every turn as "<role>: <text>"
// and a trailing assistant cue.
func (s *Session) ComposePrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	if !s.attachment.IsEmpty() {
		b.WriteString(AttachmentHeader)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s.attachment.Text))
		b.WriteString("\n\n")
	}

	for i, t := range s.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.Line())
	}
	b.WriteString("\n")
	b.WriteString(assistantCue)
	return b.String()
}

// Export writes every turn as "<role>: <text>" followed by a blank line.
func (s *Session) Export(w io.Writer) error {
	_, err := io.WriteString(w, FormatTranscript(s.Turns()))
	return err
}

// FormatTranscript renders turns in the plain-text export format.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Line())
		b.WriteString("\n\n")
	}
	return b.String()
}

func newTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}
