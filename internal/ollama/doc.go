// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama generate API.
//
// The client posts a prompt to /api/generate with streaming enabled and
// decodes the newline-delimited JSON response into text tokens.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - TokenStream: lazy, forward-only sequence of tokens for one request
//   - StreamState: Idle/Connecting/Streaming/Completed/Failed per request
//   - ClientError: typed error with an ErrorType for UI handling
//
// # Usage
//
// Pull tokens one at a time:
//
//	client := ollama.NewClient()
//	ts, err := client.Generate(ctx, prompt)
//	if err != nil {
//	    return err
//	}
//	defer ts.Close()
//	for {
//	    tok, err := ts.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(tok)
//	}
//
// Or push them through callbacks:
//
//	err := client.Stream(ctx, prompt,
//	    func(tok string) { fmt.Print(tok) },
//	    func(reply string) { history = append(history, reply) },
//	)
//
// # Malformed Lines
//
// A line that is not valid JSON is skipped and logged; it never ends the
// stream. Only transport failures, a server-reported error or a "done"
// chunk end it.
package ollama
