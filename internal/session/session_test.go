// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// USER TURN TESTS
// =============================================================================

func TestAppendUserTurn_RejectsBlankInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tabs and newlines", "\t\n \r\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			assert.False(t, s.AppendUserTurn(tc.input))
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestAppendUserTurn_TrimsInput(t *testing.T) {
	s := New()
	require.True(t, s.AppendUserTurn("  hello there \n"))

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "hello there", turns[0].Text)
	assert.NotEmpty(t, turns[0].ID)
	assert.False(t, turns[0].Timestamp.IsZero())
}

// =============================================================================
// ASSISTANT TURN TESTS
// =============================================================================

func TestAppendAssistantTurn_UpdatesLastReply(t *testing.T) {
	s := New()
	s.AppendAssistantTurn("first")
	s.AppendAssistantTurn("reply")

	assert.Equal(t, "reply", s.LastReply())
	assert.Equal(t, 2, s.Len())
}

func TestAppendAssistantTurn_EmptyStillAppends(t *testing.T) {
	s := New()
	s.AppendAssistantTurn("earlier")
	s.AppendAssistantTurn("")

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "", turns[1].Text)
	assert.Equal(t, "", s.LastReply())
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestComposePrompt_WithAttachment(t *testing.T) {
	s := New()
	s.SetAttachment("X", "x.txt", "/tmp/x.txt")
	s.AppendUserTurn("hi")

	assert.Equal(t, "[Context from attached file]\nX\n\nUser: hi\nAssistant:", s.ComposePrompt())
}

func TestComposePrompt_WithoutAttachment(t *testing.T) {
	s := New()
	s.AppendUserTurn("hi")
	s.AppendAssistantTurn("hello")
	s.AppendUserTurn("how are you?")

	prompt := s.ComposePrompt()
	assert.NotContains(t, prompt, AttachmentHeader)
	assert.Equal(t, "User: hi\nAssistant: hello\nUser: how are you?\nAssistant:", prompt)
}

func TestComposePrompt_TrimsAttachmentText(t *testing.T) {
	s := New()
	s.SetAttachment("\n\n  body text \n", "doc.txt", "doc.txt")
	s.AppendUserTurn("q")

	assert.True(t, strings.HasPrefix(s.ComposePrompt(), AttachmentHeader+"\nbody text\n\n"))
}

func TestSetAttachment_LastWriteWins(t *testing.T) {
	s := New()
	s.SetAttachment("old", "old.txt", "old.txt")
	s.SetAttachment("new", "new.pdf", "new.pdf")
	s.AppendUserTurn("q")

	att := s.Attachment()
	assert.Equal(t, "new", att.Text)
	assert.Equal(t, "new.pdf", att.DisplayName)
	assert.NotContains(t, s.ComposePrompt(), "old")
}

func TestClearAttachment(t *testing.T) {
	s := New()
	s.SetAttachment("text", "a.txt", "a.txt")
	s.ClearAttachment()
	s.AppendUserTurn("q")

	assert.True(t, s.Attachment().IsEmpty())
	assert.Equal(t, "User: q\nAssistant:", s.ComposePrompt())
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExport(t *testing.T) {
	s := New()
	s.AppendUserTurn("a")
	s.AppendAssistantTurn("b")

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))
	assert.Equal(t, "User: a\n\nAssistant: b\n\n", buf.String())
}

func TestExport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Export(&buf))
	assert.Empty(t, buf.String())
}

// =============================================================================
// ORDERING TESTS
// =============================================================================

func TestTurns_PreserveInsertionOrder(t *testing.T) {
	s := New()
	s.AppendUserTurn("one")
	s.AppendAssistantTurn("two")
	s.AppendUserTurn("one")
	s.AppendAssistantTurn("two")

	want := []Turn{
		{Role: RoleUser, Text: "one"},
		{Role: RoleAssistant, Text: "two"},
		{Role: RoleUser, Text: "one"},
		{Role: RoleAssistant, Text: "two"},
	}
	ignore := cmpopts.IgnoreFields(Turn{}, "ID", "Timestamp")
	if diff := cmp.Diff(want, s.Turns(), ignore); diff != "" {
		t.Errorf("Turns() mismatch (-want +got):\n%s", diff)
	}
}

func TestTurns_ReturnsCopy(t *testing.T) {
	s := New()
	s.AppendUserTurn("original")

	turns := s.Turns()
	turns[0].Text = "mutated"

	assert.Equal(t, "original", s.Turns()[0].Text)
}

func TestSession_ConcurrentAppends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.AppendUserTurn("question")
		}()
		go func() {
			defer wg.Done()
			s.AppendAssistantTurn("answer")
			_ = s.ComposePrompt()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.Len())
}
