// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// errStreamIncomplete marks a stream whose client returned without
// reporting completion.
var errStreamIncomplete = errors.New("stream ended without completion")

// =============================================================================
// FORMATTING UTILITIES
// =============================================================================

func formatInt(n int) string {
	return strconv.Itoa(n)
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// =============================================================================
// TEXT UTILITIES
// =============================================================================

// calculateContentWidth returns totalWidth minus margin, never less than 3.
func calculateContentWidth(totalWidth, margin int) int {
	contentWidth := totalWidth - margin
	if contentWidth < 3 {
		contentWidth = 3
	}
	return contentWidth
}

// wrapText wraps text to maxWidth display columns. Existing line breaks
// are kept, lines break at spaces where possible and words wider than
// maxWidth are split. Wide runes count as two columns.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		if runewidth.StringWidth(line) <= maxWidth {
			out.WriteString(line)
			continue
		}
		out.WriteString(wrapLine(line, maxWidth))
	}
	return out.String()
}

func wrapLine(line string, width int) string {
	var (
		out      strings.Builder
		cur      strings.Builder
		curWidth int
	)
	flush := func() {
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.SplitAfter(line, " ") {
		ww := runewidth.StringWidth(strings.TrimRight(word, " "))
		if curWidth > 0 && curWidth+ww > width {
			flush()
		}
		if ww > width {
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if curWidth+rw > width && curWidth > 0 {
					flush()
				}
				cur.WriteRune(r)
				curWidth += rw
			}
			continue
		}
		cur.WriteString(word)
		curWidth += runewidth.StringWidth(word)
	}
	if cur.Len() > 0 {
		flush()
	}
	return out.String()
}

// truncateToWidth truncates s to the given display width, adding an
// ellipsis when something was cut.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// =============================================================================
// PATH UTILITIES
// =============================================================================

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
