// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/alfred-tui/internal/document"
	"github.com/jeranaias/alfred-tui/internal/ollama"
	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Client is the part of the Ollama client the chat view uses.
type Client interface {
	Streamer
	CheckRunning(ctx context.Context) error
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	Model() string
}

// AttachmentWatcher follows the attached file on disk.
type AttachmentWatcher interface {
	Watch(path string) error
	Stop()
}

// Options configures a chat Model.
type Options struct {
	Client  Client
	Session *session.Session
	Sender  Sender
	Logger  *zap.Logger
	Theme   *styles.Theme

	// Extract reads attachment text. Defaults to document.Extract.
	Extract func(path string) (string, error)
	// Watcher, when set, re-extracts the attachment when it changes.
	Watcher AttachmentWatcher
	// Clipboard writes the last reply. Defaults to the system clipboard.
	Clipboard func(string) error

	RenderMarkdown bool
	ExportDir      string

	// Now is the clock used for default export names.
	Now func() time.Time
}

// =============================================================================
// DISPLAY STATE
// =============================================================================

type entryKind int

const (
	entryTurn entryKind = iota
	entryPending
	entryNotice
)

// entry is one block in the transcript view. Turns reference the session
// by ID; pending entries reference an in-flight stream.
type entry struct {
	kind   entryKind
	id     string
	turn   session.Turn
	text   string
	status styles.StatusKind
}

// pendingStream accumulates the tokens of one in-flight reply.
type pendingStream struct {
	buf     strings.Builder
	tokens  int
	started time.Time
	state   ollama.StreamState
}

// promptMode is what the input line is currently collecting.
type promptMode int

const (
	promptMessage promptMode = iota
	promptAttach
	promptExport
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
//
// All session mutation happens in Update. Streams, extraction, export and
// clipboard writes run as commands and report back with messages.
type Model struct {
	session   *session.Session
	client    Client
	runner    *StreamRunner
	extract   func(string) (string, error)
	watcher   AttachmentWatcher
	clipboard func(string) error
	logger    *zap.Logger
	theme     *styles.Theme
	keys      KeyMap
	now       func() time.Time

	renderMarkdown bool
	renderer       *glamour.TermRenderer
	rendered       map[string]string

	exportDir string

	ctx    context.Context
	cancel context.CancelFunc

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	prompt   promptMode
	draft    string

	entries []entry
	pending map[string]*pendingStream

	ollamaChecked bool
	ollamaUp      bool

	status     string
	statusKind styles.StatusKind
	statusSeq  int

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates a chat model.
func New(opts Options) Model {
	if opts.Session == nil {
		opts.Session = session.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Extract == nil {
		opts.Extract = document.Extract
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help"
	ti.Prompt = "> "
	ti.PromptStyle = opts.Theme.InputPrompt
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		session:        opts.Session,
		client:         opts.Client,
		runner:         NewStreamRunner(opts.Sender, opts.Client),
		extract:        opts.Extract,
		watcher:        opts.Watcher,
		clipboard:      opts.Clipboard,
		logger:         opts.Logger.Named("chat"),
		theme:          opts.Theme,
		keys:           DefaultKeyMap(),
		now:            opts.Now,
		renderMarkdown: opts.RenderMarkdown,
		rendered:       make(map[string]string),
		exportDir:      opts.ExportDir,
		ctx:            ctx,
		cancel:         cancel,
		input:          ti,
		viewport:       viewport.New(80, 20),
		spinner:        sp,
		pending:        make(map[string]*pendingStream),
	}
}

// SetSender attaches the running program. It must be called before the
// program starts; *tea.Program is the usual argument.
func (m Model) SetSender(s Sender) {
	m.runner.sender = s
}

// Shutdown cancels every in-flight stream.
func (m Model) Shutdown() {
	m.cancel()
}

// Session returns the session the model operates on.
func (m Model) Session() *session.Session {
	return m.session
}

// PendingStreams returns the IDs of streams that have not completed.
func (m Model) PendingStreams() []string {
	ids := make([]string, 0, len(m.pending))
	for _, e := range m.entries {
		if e.kind == entryPending {
			if _, ok := m.pending[e.id]; ok {
				ids = append(ids, e.id)
			}
		}
	}
	return ids
}

// Status returns the current status line text.
func (m Model) Status() string {
	return m.status
}

// =============================================================================
// INIT
// =============================================================================

// Init starts the cursor blink, the spinner and the server health check.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.checkOllamaCmd(),
	)
}

func (m Model) checkOllamaCmd() tea.Cmd {
	if m.client == nil {
		return nil
	}
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := client.CheckRunning(ctx)
		return OllamaStatusMsg{Running: err == nil, Error: err}
	}
}
