// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for alfred.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - LocalConfig: Ollama server address, model and connect timeout
//   - UIConfig: Markdown rendering and plain line mode
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ALFRED_*)
//   - ~/.alfred/config.toml
//   - Built-in defaults
//
// A broken config file never stops the program: Load reports the problem
// and returns defaults.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
//	}
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: cfg.Local.OllamaURL,
//	    Model:   cfg.Local.OllamaModel,
//	})
package config
