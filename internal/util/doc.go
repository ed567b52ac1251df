// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small file helpers shared by alfred's packages.
//
//	// Exported transcripts and the config file are never left half written
//	err := util.WriteFileAtomic(path, data, 0644)
package util
