// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// extractDOCX returns the text of every top-level body paragraph joined by
// "\n". Paragraphs nested in tables are not included.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		paras, err := docxParagraphs(rc)
		if err != nil {
			return "", err
		}
		return strings.Join(paras, "\n"), nil
	}
	return "", errors.New("docx: missing " + docxBody)
}

// docxParagraphs walks WordprocessingML and collects paragraph text.
// Runs contribute w:t text; a run's w:tab becomes a tab and its w:br or
// w:cr a newline.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paras  []string
		stack  []string
		cur    strings.Builder
		inPara bool
		inText bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			inRun := len(stack) > 0 && stack[len(stack)-1] == "r"
			switch {
			case name == "p" && len(stack) > 0 && stack[len(stack)-1] == "body":
				inPara = true
				cur.Reset()
			case inPara && name == "t":
				inText = true
			// w:tab also defines tab stops under w:pPr/w:tabs; only run
			// children are text.
			case inPara && inRun && name == "tab":
				cur.WriteByte('\t')
			case inPara && inRun && (name == "br" || name == "cr"):
				cur.WriteByte('\n')
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara && len(stack) > 0 && stack[len(stack)-1] == "body" {
					paras = append(paras, cur.String())
					inPara = false
				}
			}

		case xml.CharData:
			if inPara && inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
