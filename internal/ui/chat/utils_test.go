// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// TEXT UTILITIES TESTS
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected string
	}{
		{"fits", "short line", 20, "short line"},
		{"zero width", "anything goes", 0, "anything goes"},
		{"breaks at spaces", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"keeps newlines", "one\ntwo", 10, "one\ntwo"},
		{"splits long word", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if got != tt.expected {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.expected)
			}
		})
	}
}

func TestWrapText_WideRunes(t *testing.T) {
	got := wrapText("日本語のテキスト", 6)
	for _, line := range strings.Split(got, "\n") {
		if w := runewidth.StringWidth(line); w > 6 {
			t.Errorf("line %q is %d columns wide, want <= 6", line, w)
		}
	}
	if strings.ReplaceAll(got, "\n", "") != "日本語のテキスト" {
		t.Errorf("wrapping lost characters: %q", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := truncateToWidth("hello world", 0); got != "" {
		t.Errorf("width 0 = %q, want empty", got)
	}
	if got := truncateToWidth("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	got := truncateToWidth("hello world", 6)
	if runewidth.StringWidth(got) > 6 || !strings.HasSuffix(got, "…") {
		t.Errorf("truncateToWidth = %q", got)
	}
}

func TestCalculateContentWidth(t *testing.T) {
	if got := calculateContentWidth(80, 4); got != 76 {
		t.Errorf("got %d, want 76", got)
	}
	if got := calculateContentWidth(2, 4); got != 3 {
		t.Errorf("got %d, want minimum 3", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/docs/a.txt"); got != filepath.Join(home, "docs", "a.txt") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/a.txt"); got != "/abs/a.txt" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := expandHome("~user/a.txt"); got != "~user/a.txt" {
		t.Errorf("~user form changed: %q", got)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		`"my file.txt"`: "my file.txt",
		`'x.pdf'`:       "x.pdf",
		`plain.txt`:     "plain.txt",
		`"`:             `"`,
	}
	for in, want := range tests {
		if got := unquote(in); got != want {
			t.Errorf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestCompleteCommand(t *testing.T) {
	tests := []struct {
		partial  string
		expected string
		n        int
	}{
		{"/at", "/attach ", 1},
		{"/e", "/export ", 1},
		{"/zzz", "/zzz", 0},
		{"/", "/", 7},
	}
	for _, tt := range tests {
		got, candidates := completeCommand(tt.partial)
		if got != tt.expected || len(candidates) != tt.n {
			t.Errorf("completeCommand(%q) = %q (%d candidates), want %q (%d)",
				tt.partial, got, len(candidates), tt.expected, tt.n)
		}
	}
}

func TestCompletePath(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"report.pdf", "report.docx", "readme.txt", "photo.png", ".hidden.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "reports"), 0o755); err != nil {
		t.Fatal(err)
	}
	sep := string(filepath.Separator)

	got, candidates := completePath(filepath.Join(dir, "rep"), true)
	if got != filepath.Join(dir, "report") {
		t.Errorf("common prefix = %q", got)
	}
	if len(candidates) != 3 {
		t.Errorf("candidates = %v, want report.docx, report.pdf, reports/", candidates)
	}

	got, _ = completePath(filepath.Join(dir, "rea"), true)
	if got != filepath.Join(dir, "readme.txt") {
		t.Errorf("unique match = %q", got)
	}

	if got, c := completePath(filepath.Join(dir, "pho"), true); got != filepath.Join(dir, "pho") || len(c) != 0 {
		t.Errorf("unsupported file offered: %q %v", got, c)
	}
	if got, _ := completePath(filepath.Join(dir, "pho"), false); got != filepath.Join(dir, "photo.png") {
		t.Errorf("export completion should offer any file, got %q", got)
	}

	got, _ = completePath(filepath.Join(dir, "reports"), true)
	if got != filepath.Join(dir, "reports")+sep {
		t.Errorf("directory completion = %q", got)
	}

	if _, c := completePath(dir+sep, true); len(c) != 4 {
		t.Errorf("hidden files should be skipped, got %v", c)
	}
	if got, _ := completePath(filepath.Join(dir, ".hid"), true); got != filepath.Join(dir, ".hidden.txt") {
		t.Errorf("explicit hidden prefix = %q", got)
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	if got := longestCommonPrefix([]string{"café.txt", "cafè.txt"}); got != "caf" {
		t.Errorf("prefix split a rune: %q", got)
	}
	if got := longestCommonPrefix(nil); got != "" {
		t.Errorf("nil = %q", got)
	}
}

func TestFormatCandidates(t *testing.T) {
	got := formatCandidates([]string{"a", "b", "c", "d", "e", "f", "g"})
	if !strings.HasSuffix(got, "(+2 more)") {
		t.Errorf("formatCandidates = %q", got)
	}
}
