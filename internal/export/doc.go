// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Key Types
//
//   - Exporter: converts a Transcript to bytes in one format
//   - Transcript: the turns to export plus a little metadata
//   - TextExporter: "Role: text" blocks separated by blank lines
//   - MarkdownExporter: one heading per turn
//   - JSONExporter: machine-readable, includes turn IDs and timestamps
//
// # Usage
//
// Pick the format from the destination name:
//
//	tr := &export.Transcript{Model: model, Turns: sess.Turns()}
//	path, err := export.ExportToFile(tr, "chat.md", export.ForPath("chat.md"))
package export
