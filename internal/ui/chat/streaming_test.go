// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/alfred-tui/internal/ollama"
)

type streamFunc func(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error

func (f streamFunc) Stream(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error {
	return f(ctx, prompt, onToken, onComplete)
}

// statsClient reports fixed statistics alongside a fakeClient stream.
type statsClient struct {
	*fakeClient
	stats ollama.StreamStats
}

func (c *statsClient) StreamWithStats(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) (ollama.StreamStats, error) {
	err := c.fakeClient.Stream(ctx, prompt, onToken, onComplete)
	return c.stats, err
}

func TestStreamRunner_OrderAndCompletion(t *testing.T) {
	sender := &recordingSender{}
	r := NewStreamRunner(sender, &fakeClient{tokens: []string{"a", "", "b"}})

	done := r.Run(context.Background(), "s1", "prompt")

	assert.Equal(t, "s1", done.StreamID)
	assert.Equal(t, "ab", done.Reply)
	assert.NoError(t, done.Err)

	sent := sender.take()
	require.Len(t, sent, 4)
	start, ok := sent[0].(StreamStartMsg)
	require.True(t, ok)
	assert.Equal(t, "s1", start.StreamID)
	assert.Equal(t, StreamTokenMsg{StreamID: "s1", Token: "a"}, sent[1])
	assert.Equal(t, StreamTokenMsg{StreamID: "s1", Token: ""}, sent[2])
	assert.Equal(t, StreamTokenMsg{StreamID: "s1", Token: "b"}, sent[3])
}

func TestStreamRunner_NilSenderKeepsReply(t *testing.T) {
	r := NewStreamRunner(nil, &fakeClient{tokens: []string{"x", "y"}})

	msg := r.Cmd(context.Background(), "s2", "p")()

	done, ok := msg.(StreamCompleteMsg)
	require.True(t, ok)
	assert.Equal(t, "xy", done.Reply)
}

func TestStreamRunner_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	r := NewStreamRunner(nil, streamFunc(func(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error {
		onToken("half")
		onComplete("half")
		return boom
	}))

	done := r.Run(context.Background(), "s3", "p")
	assert.ErrorIs(t, done.Err, boom)
	assert.Equal(t, "half", done.Reply)
}

func TestStreamRunner_MissingCompletion(t *testing.T) {
	r := NewStreamRunner(nil, streamFunc(func(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error {
		return nil
	}))

	done := r.Run(context.Background(), "s4", "p")
	assert.ErrorIs(t, done.Err, errStreamIncomplete)
	assert.Equal(t, "", done.Reply)
}

func TestSetSender_SharedWithCopies(t *testing.T) {
	m := New(Options{Client: &fakeClient{tokens: []string{"t"}}})
	copyOfModel := m
	sender := &recordingSender{}
	m.SetSender(sender)

	copyOfModel.runner.Run(context.Background(), "s5", "p")
	assert.Len(t, sender.take(), 2)
}

func TestStreamRunner_ReportsStats(t *testing.T) {
	stats := ollama.StreamStats{Tokens: 2, Skipped: 1, TokensPerSecond: 12.5}
	r := NewStreamRunner(nil, &statsClient{fakeClient: &fakeClient{tokens: []string{"o", "k"}}, stats: stats})

	done := r.Run(context.Background(), "s9", "p")
	assert.Equal(t, "ok", done.Reply)
	assert.Equal(t, stats, done.Stats)
}

func TestFormatStats(t *testing.T) {
	tests := []struct {
		name  string
		stats ollama.StreamStats
		want  string
	}{
		{"tokens only", ollama.StreamStats{Tokens: 3}, "3 tokens in 1.2s"},
		{"with rate", ollama.StreamStats{Tokens: 40, TokensPerSecond: 33.333}, "40 tokens in 1.2s (33.3 tok/s)"},
		{"with skipped", ollama.StreamStats{Tokens: 1, Skipped: 2}, "1 tokens in 1.2s, 2 malformed lines skipped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStats(tt.stats, 1234*time.Millisecond))
		})
	}
}
