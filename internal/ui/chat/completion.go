// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains tab completion for commands and attachment paths.
package chat

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/document"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// maxListedCompletions bounds how many candidates the status line shows.
const maxListedCompletions = 5

// =============================================================================
// TAB COMPLETION HANDLERS
// =============================================================================

// handleTabCompletion completes the current input: a path in the attach
// prompt or after /attach, otherwise a command name.
func (m Model) handleTabCompletion() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	var (
		prefix  string
		partial string
		isPath  bool
	)
	switch {
	case m.prompt == promptAttach || m.prompt == promptExport:
		partial, isPath = value, true
	case strings.HasPrefix(value, "/attach "), strings.HasPrefix(value, "/a "):
		cmd, rest, _ := strings.Cut(value, " ")
		prefix, partial, isPath = cmd+" ", strings.TrimLeft(rest, " "), true
	case strings.HasPrefix(value, "/") && !strings.Contains(value, " "):
		partial = value
	default:
		return m, nil
	}

	var (
		completed  string
		candidates []string
	)
	if isPath {
		completed, candidates = completePath(partial, m.prompt != promptExport)
	} else {
		completed, candidates = completeCommand(partial)
	}

	if completed != partial {
		m.input.SetValue(prefix + completed)
		m.input.CursorEnd()
	}
	if len(candidates) > 1 {
		cmd := m.setStatus(styles.StatusInfo, formatCandidates(candidates))
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// COMPLETERS
// =============================================================================

// completeCommand extends partial to the longest common prefix of the
// matching command names.
func completeCommand(partial string) (string, []string) {
	var matches []string
	for _, name := range commandNames() {
		if strings.HasPrefix(name, strings.ToLower(partial)) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return partial, nil
	case 1:
		return matches[0] + " ", matches
	}
	return longestCommonPrefix(matches), matches
}

// completePath extends partial to the longest common prefix of the
// directory entries it matches. Directories get a trailing separator.
// With documentsOnly set, files are offered only if the extractor
// supports them. Hidden entries are offered only when partial names one.
func completePath(partial string, documentsOnly bool) (string, []string) {
	if partial == "~" {
		return "~" + string(filepath.Separator), nil
	}

	expanded := expandHome(partial)
	dir, base := filepath.Split(expanded)
	listDir := dir
	if listDir == "" {
		listDir = "."
	}

	entries, err := os.ReadDir(listDir)
	if err != nil {
		return partial, nil
	}

	var matches []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		isDir := e.IsDir()
		if !isDir && e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(listDir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		switch {
		case isDir:
			name += string(filepath.Separator)
		case documentsOnly && !document.Supports(name):
			continue
		}
		matches = append(matches, name)
	}
	if len(matches) == 0 {
		return partial, nil
	}
	sort.Strings(matches)

	// Keep what the user typed for the directory part, including a ~.
	typedDir := partial[:len(partial)-len(base)]
	if len(matches) == 1 {
		return typedDir + matches[0], matches
	}
	return typedDir + longestCommonPrefix(matches), matches
}

// =============================================================================
// HELPERS
// =============================================================================

func longestCommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

func formatCandidates(candidates []string) string {
	shown := candidates
	if len(shown) > maxListedCompletions {
		shown = shown[:maxListedCompletions]
	}
	s := strings.Join(shown, "  ")
	if more := len(candidates) - len(shown); more > 0 {
		s += "  (+" + formatInt(more) + " more)"
	}
	return s
}
