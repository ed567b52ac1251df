// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory chat session state.
//
// A Session owns the transcript of user and assistant turns, the single
// active attachment, and the last completed assistant reply. It builds the
// prompt sent to the inference server and serializes the transcript for
// export. Nothing here is persisted across runs.
//
// # Key Types
//
//   - Session: transcript, attachment and last-reply slot
//   - Turn: one transcript entry (role + text)
//   - Attachment: extracted document text plus its display name
//
// # Usage
//
//	s := session.New()
//	s.SetAttachment(text, "notes.pdf", "/home/me/notes.pdf")
//	if s.AppendUserTurn(input) {
//	    prompt := s.ComposePrompt()
//	    // stream prompt, then:
//	    s.AppendAssistantTurn(reply)
//	}
//
// # Concurrency
//
// A Session is guarded by a mutex. In the TUI all mutations still happen on
// the Bubble Tea update loop; background stream goroutines never touch the
// session directly.
package session
