// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestPlainThemeRendersVerbatim(t *testing.T) {
	th := NewPlainTheme()

	if !th.Plain() {
		t.Fatal("NewPlainTheme().Plain() = false")
	}
	for name, got := range map[string]string{
		"user":      th.UserLabel.Render("User:"),
		"assistant": th.AssistantLabel.Render("Assistant:"),
		"notice":    th.Notice.Render("[Attached file: a.txt]"),
		"error":     th.Status(StatusError).Render("boom"),
	} {
		want := map[string]string{
			"user":      "User:",
			"assistant": "Assistant:",
			"notice":    "[Attached file: a.txt]",
			"error":     "boom",
		}[name]
		if got != want {
			t.Errorf("%s rendered %q, want %q", name, got, want)
		}
	}
}

func TestGlamourStyle(t *testing.T) {
	tests := []struct {
		profile termenv.Profile
		dark    bool
		want    string
	}{
		{termenv.Ascii, true, "notty"},
		{termenv.TrueColor, true, "dark"},
		{termenv.ANSI256, false, "light"},
	}
	for _, tt := range tests {
		if got := newTheme(tt.profile, tt.dark).GlamourStyle(); got != tt.want {
			t.Errorf("GlamourStyle(%v, dark=%v) = %q, want %q", tt.profile, tt.dark, got, tt.want)
		}
	}
}

func TestStatusFallsBackToInfo(t *testing.T) {
	th := newTheme(termenv.TrueColor, true)
	if th.Status(StatusKind(42)).GetForeground() != th.Status(StatusInfo).GetForeground() {
		t.Error("unknown status kind should use the info style")
	}
}
