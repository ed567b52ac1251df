// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// STREAM STATE
// =============================================================================

// StreamState is the lifecycle of a single generate request.
type StreamState int

const (
	StateIdle StreamState = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the display name of the state.
func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further tokens can arrive.
func (s StreamState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// =============================================================================
// TOKEN STREAM
// =============================================================================

// Malformed lines are logged at most this often per stream.
const skipLogBurst = 3

// TokenStream is a lazy, forward-only sequence of tokens decoded from one
// /api/generate response. It is not safe for concurrent use except for
// State, which may be read from any goroutine.
type TokenStream struct {
	ctx     context.Context
	body    io.ReadCloser
	reader  *bufio.Reader
	logger  *zap.Logger
	limiter *rate.Limiter

	// PERFORMANCE: strings.Builder avoids quadratic allocations
	reply      strings.Builder
	tokenCount int
	skipped    int
	startTime  time.Time
	final      *GenerateResponse

	done bool
	err  error

	mu    sync.Mutex
	state StreamState

	closeOnce sync.Once
}

func newTokenStream(ctx context.Context, body io.ReadCloser, logger *zap.Logger) *TokenStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenStream{
		ctx:       ctx,
		body:      body,
		reader:    bufio.NewReader(body),
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(time.Second), skipLogBurst),
		startTime: time.Now(),
		state:     StateConnecting,
	}
}

// Next returns the next token. It returns io.EOF once the server signals
// completion or closes the body cleanly. Any other error is terminal and
// is returned again on subsequent calls.
//
// A line carrying {"error": ...} ends the stream with an ErrTypeServer
// error, even mid-reply; tokens returned before it stay in Reply.
func (ts *TokenStream) Next() (string, error) {
	if ts.err != nil {
		return "", ts.err
	}
	if ts.done {
		return "", ts.finish(io.EOF)
	}

	for {
		if err := ts.ctx.Err(); err != nil {
			return "", ts.finish(err)
		}

		line, readErr := ts.reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			if ctxErr := ts.ctx.Err(); ctxErr != nil {
				readErr = ctxErr
			}
			return "", ts.finish(&ClientError{
				Type:    ErrTypeConnection,
				Message: "stream interrupted",
				Cause:   readErr,
			})
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if readErr != nil {
				return "", ts.finish(io.EOF)
			}
			continue
		}

		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			ts.skip(line, err)
			if readErr != nil {
				return "", ts.finish(io.EOF)
			}
			continue
		}

		if chunk.Error != "" {
			return "", ts.finish(&ClientError{
				Type:    ErrTypeServer,
				Message: "server reported error",
				Cause:   errors.New(chunk.Error),
			})
		}

		ts.setState(StateStreaming)
		ts.reply.WriteString(chunk.Response)
		ts.tokenCount++

		// A body that ends without a trailing newline still yields its
		// last token; the following call reports EOF.
		if chunk.Done || readErr != nil {
			ts.done = true
			if chunk.Done {
				final := chunk
				ts.final = &final
			}
		}
		return chunk.Response, nil
	}
}

// Reply returns the concatenation of every token returned so far.
func (ts *TokenStream) Reply() string {
	return ts.reply.String()
}

// Stats summarises the stream so far. TokensPerSecond is taken from the
// server's closing chunk and stays zero until it arrives.
func (ts *TokenStream) Stats() StreamStats {
	stats := StreamStats{
		Tokens:   ts.tokenCount,
		Skipped:  ts.skipped,
		Duration: ts.Duration(),
	}
	if ts.final != nil {
		stats.TokensPerSecond = ts.final.TokensPerSecond()
	}
	return stats
}

// Duration returns the time since the response headers arrived.
func (ts *TokenStream) Duration() time.Duration {
	return time.Since(ts.startTime)
}

// State returns the current lifecycle state.
func (ts *TokenStream) State() StreamState {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.state
}

// Close releases the response body. It is safe to call more than once.
func (ts *TokenStream) Close() error {
	var err error
	ts.closeOnce.Do(func() {
		err = ts.body.Close()
		ts.mu.Lock()
		if !ts.state.Terminal() {
			ts.state = StateCompleted
		}
		ts.mu.Unlock()
	})
	return err
}

func (ts *TokenStream) finish(err error) error {
	ts.err = err
	if errors.Is(err, io.EOF) {
		ts.setState(StateCompleted)
		ts.logger.Debug("stream completed",
			zap.Int("tokens", ts.tokenCount),
			zap.Int("skipped", ts.skipped),
			zap.Duration("duration", ts.Duration()))
	} else {
		ts.setState(StateFailed)
	}
	return err
}

func (ts *TokenStream) skip(line []byte, err error) {
	ts.skipped++
	if !ts.limiter.Allow() {
		return
	}
	if len(line) > 120 {
		line = line[:120]
	}
	ts.logger.Warn("skipping malformed stream line",
		zap.ByteString("line", line),
		zap.Int("skipped", ts.skipped),
		zap.Error(err))
}

func (ts *TokenStream) setState(s StreamState) {
	ts.mu.Lock()
	ts.state = s
	ts.mu.Unlock()
}
