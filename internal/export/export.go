// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format and returns the content.
	Export(tr *Transcript) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".txt").
	FileExtension() string
}

// Transcript is the data handed to an exporter.
type Transcript struct {
	Model      string
	Attachment string // display name of the attached file, if any
	Turns      []session.Turn
	ExportedAt time.Time
}

// ErrNilTranscript is returned when an exporter is given no transcript.
var ErrNilTranscript = errors.New("transcript is nil")

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForPath returns the exporter matching the extension of path. Unknown
// extensions get the plain text exporter.
func ForPath(path string) Exporter {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownExporter()
	case ".json":
		return NewJSONExporter()
	default:
		return NewTextExporter()
	}
}

// ExportToFile writes tr to path using exporter, creating the parent
// directory if needed. If path has no extension the exporter's is added.
// Returns the path written.
func ExportToFile(tr *Transcript, path string, exporter Exporter) (string, error) {
	if exporter == nil {
		exporter = ForPath(path)
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("export path is empty")
	}
	if filepath.Ext(path) == "" {
		path += exporter.FileExtension()
	}

	content, err := exporter.Export(tr)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := util.WriteFileAtomic(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

// DefaultFilename suggests a timestamped file name in dir.
func DefaultFilename(dir string, now time.Time, ext string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "conversation_"+now.Format("20060102_150405")+ext)
}

// ResolvePath turns user input into an export path. Empty input gets a
// timestamped .txt name in dir, a leading ~ expands to the home directory
// and relative paths are taken relative to dir. The file name itself is
// passed through SanitizeFilename.
func ResolvePath(dir, input string, now time.Time) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return DefaultFilename(dir, now, ".txt")
	}
	if input == "~" || strings.HasPrefix(input, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			input = filepath.Join(home, input[1:])
		}
	}
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(input) {
		input = filepath.Join(dir, input)
	}
	return filepath.Join(filepath.Dir(input), SanitizeFilename(filepath.Base(input)))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// SanitizeFilename makes s safe to use as a file name. Separators and
// characters Windows rejects become '-', whitespace becomes '_' and the
// name before the extension is cut to 50 runes.
func SanitizeFilename(s string) string {
	ext := filepath.Ext(s)
	if len([]rune(ext)) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(s, ext))
	if len(stem) > maxStemRunes {
		stem = stem[:maxStemRunes]
	}

	clean := func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '-'
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return '_'
		case r < 32 || r == 127:
			return '-'
		}
		return r
	}

	name := strings.Map(clean, string(stem))
	if name == "" {
		name = "conversation"
	}
	return name + strings.Map(clean, ext)
}

const maxStemRunes = 50

func exportTime(tr *Transcript) time.Time {
	if tr.ExportedAt.IsZero() {
		return time.Now()
	}
	return tr.ExportedAt
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
