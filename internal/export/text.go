// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import "github.com/jeranaias/alfred-tui/internal/session"

// TextExporter writes the canonical transcript: each turn as
// "Role: text" followed by a blank line. Metadata is never included.
type TextExporter struct{}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export converts a transcript to plain text.
func (e *TextExporter) Export(tr *Transcript) ([]byte, error) {
	if tr == nil {
		return nil, ErrNilTranscript
	}
	return []byte(session.FormatTranscript(tr.Turns)), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

