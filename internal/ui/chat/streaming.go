// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file runs generate requests off the UI loop and marshals their
// tokens back onto it.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/ollama"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Sender delivers a message to the running program's event loop.
// *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Streamer issues one generate request. onComplete must be called exactly
// once, after the last onToken.
type Streamer interface {
	Stream(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error
}

// StatsStreamer is a Streamer that also reports token statistics.
// *ollama.Client satisfies it.
type StatsStreamer interface {
	StreamWithStats(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) (ollama.StreamStats, error)
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner manages streaming for a Bubble Tea program.
type StreamRunner struct {
	sender   Sender
	streamer Streamer
}

// NewStreamRunner creates a new stream runner. A nil sender drops tokens;
// the completion message still carries the whole reply.
func NewStreamRunner(sender Sender, streamer Streamer) *StreamRunner {
	return &StreamRunner{
		sender:   sender,
		streamer: streamer,
	}
}

// Cmd returns a command that runs the stream to completion. Bubble Tea
// executes each command on its own goroutine; tokens are sent as
// StreamTokenMsg while it runs and the command's result is the
// StreamCompleteMsg. Send blocks until the loop accepts the message, so
// every token of a stream arrives before its completion.
func (r *StreamRunner) Cmd(ctx context.Context, streamID, prompt string) tea.Cmd {
	return func() tea.Msg {
		return r.Run(ctx, streamID, prompt)
	}
}

// Run executes a stream synchronously and returns its completion message.
func (r *StreamRunner) Run(ctx context.Context, streamID, prompt string) StreamCompleteMsg {
	start := time.Now()
	r.send(StreamStartMsg{StreamID: streamID, StartTime: start})

	var (
		reply     string
		completed bool
		stats     ollama.StreamStats
		err       error
	)
	onToken := func(token string) {
		r.send(StreamTokenMsg{StreamID: streamID, Token: token})
	}
	onComplete := func(full string) {
		reply = full
		completed = true
	}
	if ss, ok := r.streamer.(StatsStreamer); ok {
		stats, err = ss.StreamWithStats(ctx, prompt, onToken, onComplete)
	} else {
		err = r.streamer.Stream(ctx, prompt, onToken, onComplete)
	}
	if !completed && err == nil {
		err = errStreamIncomplete
	}

	return StreamCompleteMsg{
		StreamID: streamID,
		Reply:    reply,
		Err:      err,
		Duration: time.Since(start),
		Stats:    stats,
	}
}

func (r *StreamRunner) send(msg tea.Msg) {
	if r.sender != nil {
		r.sender.Send(msg)
	}
}
