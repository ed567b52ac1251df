// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the alfred TUI.

The package implements a Bubble Tea model that lets the user type messages,
attach a document as context, and watch replies from a local Ollama server
stream in token by token.

# Key Components

## Model (model.go)

The Model owns the display state: input line, viewport, spinner, the
entries shown in the transcript and one pending buffer per in-flight
reply. The conversation itself lives in a *session.Session shared with
the rest of the application.

## Update Loop (update.go)

All session mutation happens in Update:
  - Enter appends the user turn and starts a stream
  - StreamTokenMsg appends to the matching pending buffer
  - StreamCompleteMsg appends the assistant turn, empty or not
  - Attachment, export and clipboard results update the status line

## Streaming (streaming.go)

StreamRunner turns one generate request into a tea.Cmd. Tokens are
delivered to the program with Send while the command runs, and the
command's own result is the completion message, so a stream's tokens
always precede its completion. Each stream carries its own ID; tokens
for an unknown ID are dropped.

## Commands (commands.go)

Slash commands:
  - /attach <path> - attach a .pdf, .docx or .txt file
  - /detach - drop the attachment
  - /export [path] - save the transcript (.txt, .md or .json)
  - /copy - copy the last reply
  - /models - list installed models
  - /help, /quit

# Usage

	m := chat.New(chat.Options{
		Client:  client,
		Session: session.New(),
		Logger:  logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetSender(p)
	_, err := p.Run()
*/
package chat
