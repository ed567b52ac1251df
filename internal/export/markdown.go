// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/alfred-tui/internal/session"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	// IncludeTimestamps appends the turn time to each heading.
	IncludeTimestamps bool
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{IncludeTimestamps: true}
}

// Export converts a transcript to Markdown format.
func (e *MarkdownExporter) Export(tr *Transcript) ([]byte, error) {
	if tr == nil {
		return nil, ErrNilTranscript
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	sb.WriteString("---\n")
	if tr.Model != "" {
		sb.WriteString(fmt.Sprintf("model: %s\n", escapeYAML(tr.Model)))
	}
	if tr.Attachment != "" {
		sb.WriteString(fmt.Sprintf("attachment: %s\n", escapeYAML(tr.Attachment)))
	}
	sb.WriteString(fmt.Sprintf("turns: %d\n", len(tr.Turns)))
	sb.WriteString(fmt.Sprintf("exported: %s\n", exportTime(tr).Format(time.RFC3339)))
	sb.WriteString("generator: alfred\n")
	sb.WriteString("---\n\n")

	sb.WriteString("# Conversation\n\n")

	for i, turn := range tr.Turns {
		if e.IncludeTimestamps && !turn.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("## %s <sub>%s</sub>\n\n",
				turn.Role, formatShortTimestamp(turn.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("## %s\n\n", turn.Role))
		}

		content := strings.TrimSpace(turn.Text)
		if content == "" && turn.Role == session.RoleAssistant {
			content = "*(no reply)*"
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")

		if i < len(tr.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
