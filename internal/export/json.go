// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON format.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonTranscript struct {
	ExportedAt time.Time  `json:"exported_at"`
	Model      string     `json:"model,omitempty"`
	Attachment string     `json:"attachment,omitempty"`
	Turns      []jsonTurn `json:"turns"`
}

type jsonTurn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Export converts a transcript to JSON format.
func (e *JSONExporter) Export(tr *Transcript) ([]byte, error) {
	if tr == nil {
		return nil, ErrNilTranscript
	}

	out := jsonTranscript{
		ExportedAt: exportTime(tr),
		Model:      tr.Model,
		Attachment: tr.Attachment,
		Turns:      make([]jsonTurn, 0, len(tr.Turns)),
	}
	for _, turn := range tr.Turns {
		out.Turns = append(out.Turns, jsonTurn{
			ID:        turn.ID,
			Role:      turn.Role.String(),
			Text:      turn.Text,
			Timestamp: turn.Timestamp,
		})
	}

	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

