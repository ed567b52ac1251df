// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeepInHistory(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"/attach report.pdf", true},
		{"  /help", true},
		{"/quit", true},
		{"what does section 2 say?", false},
		{"", false},
		{"   ", false},
		{"a/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, keepInHistory(tt.line))
		})
	}
}
