// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the line-mode front end for alfred.
//
// When stdin or stdout is not a terminal, or --plain is given, alfred runs
// a REPL instead of the full-screen TUI. The REPL shares the chat session,
// document extraction and export code with the TUI and accepts the same
// slash commands.
//
// # Key Types
//
//   - REPL: reads lines, streams replies and runs slash commands
//   - LineEditor: liner-backed input with persistent history
//
// # Usage
//
//	repl := cli.NewREPL(cli.Options{Client: client, Session: sess})
//	if err := repl.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli
