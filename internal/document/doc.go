// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document extracts plain text from attachable files.
//
// Format dispatch is strictly by lower-cased file extension:
//
//   - .pdf:  text of every page, in page order, with no added separators
//   - .docx: body paragraphs joined by a single newline
//   - .txt:  the whole file, which must be valid UTF-8
//
// Any other extension yields ErrUnsupportedFormat. All returned text is
// NFC-normalised.
//
// # Key Types
//
//   - Extractor: per-format extraction function registry
//   - Watcher: re-extracts an attached file when it changes on disk
//
// # Usage
//
//	text, err := document.Extract("notes.pdf")
//	if errors.Is(err, document.ErrUnsupportedFormat) {
//	    // not an attachable file
//	}
package document
