// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the alfred TUI.
//
// Colors are Lip Gloss AdaptiveColors so the same palette works on light
// and dark terminals. NewTheme detects the terminal with termenv;
// NewPlainTheme renders everything unstyled.
package styles
