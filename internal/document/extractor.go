// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnsupportedFormat is returned for extensions with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidEncoding is returned when a text file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// =============================================================================
// EXTRACTOR
// =============================================================================

// ExtractFunc reads the file at path and returns its plain text.
type ExtractFunc func(path string) (string, error)

// Extractor dispatches extraction by file extension.
type Extractor struct {
	byExt map[string]ExtractFunc
}

// NewExtractor returns an extractor for PDF, DOCX and plain text files.
func NewExtractor() *Extractor {
	return &Extractor{
		byExt: map[string]ExtractFunc{
			".pdf":  extractPDF,
			".docx": extractDOCX,
			".txt":  extractTXT,
		},
	}
}

// Supports reports whether path has an extension with an extractor.
func (e *Extractor) Supports(path string) bool {
	_, ok := e.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions returns the registered extensions, sorted.
func (e *Extractor) SupportedExtensions() []string {
	exts := make([]string, 0, len(e.byExt))
	for ext := range e.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract returns the NFC-normalised text of the file at path.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := e.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	text, err := fn(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return norm.NFC.String(text), nil
}

var defaultExtractor = NewExtractor()

// Extract extracts text using the default extractor.
func Extract(path string) (string, error) {
	return defaultExtractor.Extract(path)
}

// SupportedExtensions lists the extensions Extract accepts.
func SupportedExtensions() []string {
	return defaultExtractor.SupportedExtensions()
}

// Supports reports whether Extract accepts path.
func Supports(path string) bool {
	return defaultExtractor.Supports(path)
}

// =============================================================================
// FORMATS
// =============================================================================

func extractTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return string(data), nil
}

func extractPDF(path string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
