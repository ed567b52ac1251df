// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Line editing and input history for the alfred REPL.

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/alfred-tui/internal/config"
)

// historyFileName is stored in the config directory.
const historyFileName = "chat_history"

// LineReader reads one line of user input.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// LineEditor provides input history and line editing for the REPL.
// Arrow keys navigate history; Ctrl+C aborts the prompt.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a LineEditor and loads the saved history.
// liner falls back to plain line reading when stdin is not a terminal.
func NewLineEditor() *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	e := &LineEditor{
		line:        line,
		historyFile: filepath.Join(configDir, historyFileName),
	}
	e.LoadHistory()
	return e
}

// LoadHistory loads command history from file.
func (e *LineEditor) LoadHistory() {
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = e.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Only slash
// commands enter the history; questions are never written to disk.
func (e *LineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if keepInHistory(input) {
		e.line.AppendHistory(input)
	}
	return input, nil
}

func keepInHistory(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// SaveHistory persists the slash-command history, readable only by the owner.
func (e *LineEditor) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = e.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() {
	e.SaveHistory()
	e.line.Close()
}
