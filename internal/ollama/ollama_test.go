// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// ndjsonServer serves body lines on /api/generate, flushing after each.
func ndjsonServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClientWithConfig(&ClientConfig{
		BaseURL:        baseURL,
		Model:          "test-model",
		Timeout:        2 * time.Second,
		ConnectTimeout: time.Second,
	})
	t.Cleanup(c.Close)
	return c
}

type recorder struct {
	tokens    []string
	completes []string
}

func (r *recorder) onToken(tok string)      { r.tokens = append(r.tokens, tok) }
func (r *recorder) onComplete(reply string) { r.completes = append(r.completes, reply) }

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestStream_SkipsMalformedLines(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"Hel"}`,
		`{"response":"lo"}`,
		`garbage`,
		`{"response":"!"}`,
	)
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, rec.tokens)
	assert.Equal(t, []string{"Hello!"}, rec.completes)
}

func TestStream_NoLinesCompletesOnceWithEmptyReply(t *testing.T) {
	srv := ndjsonServer(t)
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.NoError(t, err)
	assert.Empty(t, rec.tokens)
	assert.Equal(t, []string{""}, rec.completes)
}

func TestStream_OnlyGarbageCompletesOnce(t *testing.T) {
	srv := ndjsonServer(t, "not json", "{broken", "")
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.NoError(t, err)
	assert.Empty(t, rec.tokens)
	assert.Equal(t, []string{""}, rec.completes)
}

func TestStream_EmptyTokensAreDelivered(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"a"}`,
		`{"response":""}`,
		`{"response":"b","done":true}`,
	)
	c := testClient(t, srv.URL)

	var rec recorder
	require.NoError(t, c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete))

	assert.Equal(t, []string{"a", "", "b"}, rec.tokens)
	assert.Equal(t, []string{"ab"}, rec.completes)
}

func TestStream_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := testClient(t, url)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.Error(t, err)
	assert.True(t, IsNotRunning(err), "expected not-running error, got %v", err)
	assert.Empty(t, rec.tokens)
	assert.Equal(t, []string{""}, rec.completes)
}

func TestStream_MidStreamAbortKeepsDeliveredTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more bytes than are written so the client sees a
		// truncated body.
		body := "{\"response\":\"par\"}\n{\"response\":\"tial\"}\n"
		w.Header().Set("Content-Length", fmt.Sprint(len(body)+100))
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.Error(t, err)
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrTypeConnection, clientErr.Type)
	assert.Equal(t, []string{"par", "tial"}, rec.tokens)
	assert.Equal(t, []string{"partial"}, rec.completes)
}

func TestStream_ServerErrorLineEndsStream(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"x"}`,
		`{"error":"out of memory"}`,
		`{"response":"never"}`,
	)
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Equal(t, []string{"x"}, rec.tokens)
	assert.Equal(t, []string{"x"}, rec.completes)
}

func TestStream_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'test-model' not found"}`)
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	var rec recorder
	err := c.Stream(context.Background(), "hi", rec.onToken, rec.onComplete)

	require.Error(t, err)
	assert.True(t, IsModelNotFound(err))
	assert.Contains(t, err.Error(), "not found")
	assert.Equal(t, []string{""}, rec.completes)
}

func TestStream_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"first"}`)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	err := c.Stream(ctx, "hi", func(tok string) {
		rec.onToken(tok)
		cancel()
	}, rec.onComplete)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, []string{"first"}, rec.tokens)
	assert.Equal(t, []string{"first"}, rec.completes)
}

func TestStream_NilCallbacks(t *testing.T) {
	srv := ndjsonServer(t, `{"response":"ok","done":true}`)
	c := testClient(t, srv.URL)

	assert.NoError(t, c.Stream(context.Background(), "hi", nil, nil))
}

// =============================================================================
// TOKEN STREAM TESTS
// =============================================================================

func TestGenerate_RequestBody(t *testing.T) {
	gotCh := make(chan GenerateRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotCh <- req
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL+"/")

	ts, err := c.Generate(context.Background(), "User: hi\nAssistant:")
	require.NoError(t, err)
	defer ts.Close()

	for {
		if _, err := ts.Next(); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}

	assert.Equal(t, GenerateRequest{
		Model:  "test-model",
		Prompt: "User: hi\nAssistant:",
		Stream: true,
	}, <-gotCh)
}

func TestTokenStream_DoneEndsStream(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"one"}`,
		`{"response":"","done":true,"eval_count":10,"eval_duration":2000000000}`,
		`{"response":"ignored"}`,
	)
	c := testClient(t, srv.URL)

	ts, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	defer ts.Close()

	tok, err := ts.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", tok)
	assert.Equal(t, StateStreaming, ts.State())

	tok, err = ts.Next()
	require.NoError(t, err)
	assert.Equal(t, "", tok)

	for i := 0; i < 3; i++ {
		_, err = ts.Next()
		assert.ErrorIs(t, err, io.EOF)
	}

	assert.Equal(t, StateCompleted, ts.State())
	assert.Equal(t, "one", ts.Reply())
	stats := ts.Stats()
	assert.Equal(t, 2, stats.Tokens)
	assert.InDelta(t, 5.0, stats.TokensPerSecond, 0.001)
}

func TestStreamWithStats(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"Hel"}`,
		`garbage`,
		`{"response":"lo","done":true,"eval_count":4,"eval_duration":500000000}`,
	)
	c := testClient(t, srv.URL)

	var rec recorder
	stats, err := c.StreamWithStats(context.Background(), "p", rec.onToken, rec.onComplete)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, rec.completes)
	assert.Equal(t, 2, stats.Tokens)
	assert.Equal(t, 1, stats.Skipped)
	assert.InDelta(t, 8.0, stats.TokensPerSecond, 0.001)
}

func TestStreamWithStats_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := testClient(t, url)

	var rec recorder
	stats, err := c.StreamWithStats(context.Background(), "p", rec.onToken, rec.onComplete)
	assert.True(t, IsNotRunning(err))
	assert.Equal(t, StreamStats{}, stats)
	assert.Equal(t, []string{""}, rec.completes)
}

func TestTokenStream_LastLineWithoutNewline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{\"response\":\"a\"}\n{\"response\":\"b\"}")
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	var rec recorder
	require.NoError(t, c.Stream(context.Background(), "p", rec.onToken, rec.onComplete))
	assert.Equal(t, []string{"a", "b"}, rec.tokens)
	assert.Equal(t, []string{"ab"}, rec.completes)
}

func TestTokenStream_CountsSkippedLines(t *testing.T) {
	lines := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		lines = append(lines, "garbage")
	}
	lines = append(lines, `{"response":"z"}`)
	srv := ndjsonServer(t, lines...)
	c := testClient(t, srv.URL)

	ts, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	defer ts.Close()

	tok, err := ts.Next()
	require.NoError(t, err)
	assert.Equal(t, "z", tok)
	assert.Equal(t, 20, ts.Stats().Skipped)
	assert.Zero(t, ts.Stats().TokensPerSecond)
}

func TestTokenStream_CloseIsIdempotent(t *testing.T) {
	srv := ndjsonServer(t, `{"response":"a"}`)
	c := testClient(t, srv.URL)

	ts, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)

	assert.NoError(t, ts.Close())
	assert.NoError(t, ts.Close())
	assert.True(t, ts.State().Terminal())
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(nil)
	defer c.Close()

	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultModel, c.Model())

	c2 := NewClientWithConfig(&ClientConfig{BaseURL: "http://example:1/"})
	defer c2.Close()
	assert.Equal(t, "http://example:1", c2.BaseURL())
	assert.Equal(t, DefaultModel, c2.Model())
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Ollama is running")
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL)
	assert.NoError(t, c.CheckRunning(context.Background()))
}

func TestCheckRunning_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := testClient(t, url)
	err := c.CheckRunning(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
	assert.False(t, IsTimeout(err))
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[{"name":"llama3.1:8b","size":4920000000},{"name":"phi3:mini","size":2300000000}]}`)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL)
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.1:8b", models[0].Name)
	assert.Equal(t, "4.6 GB", models[0].FormatSize())
}

func TestListModels_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	}))
	t.Cleanup(srv.Close)

	c := testClient(t, srv.URL)
	_, err := c.ListModels(context.Background())

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrTypeInvalidResponse, clientErr.Type)
}

// =============================================================================
// TYPE TESTS
// =============================================================================

func TestClientError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: cause}

	assert.Equal(t, "Ollama is not running: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNotRunning(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsNotRunning(cause))
	assert.Equal(t, "request timed out", ErrTimeout.Error())
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		typ  ErrorType
		want string
	}{
		{ErrTypeUnknown, "unknown"},
		{ErrTypeNotRunning, "not_running"},
		{ErrTypeTimeout, "timeout"},
		{ErrTypeModelNotFound, "model_not_found"},
		{ErrTypeConnection, "connection"},
		{ErrTypeInvalidResponse, "invalid_response"},
		{ErrTypeServer, "server"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestStreamStateString(t *testing.T) {
	tests := []struct {
		state    StreamState
		want     string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateConnecting, "connecting", false},
		{StateStreaming, "streaming", false},
		{StateCompleted, "completed", true},
		{StateFailed, "failed", true},
		{StreamState(99), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.state.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.want, got, tt.terminal)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512.0 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		m := ModelInfo{Size: tt.size}
		if got := m.FormatSize(); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestTokensPerSecond_ZeroDuration(t *testing.T) {
	r := GenerateResponse{EvalCount: 10}
	assert.Zero(t, r.TokensPerSecond())
	assert.False(t, strings.Contains(fmt.Sprint(r.TokensPerSecond()), "Inf"))
}
