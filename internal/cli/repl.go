// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Line-mode chat for alfred.
//
// Used with --plain or when stdin/stdout is not a terminal. Each send is
// read, streamed and printed before the next prompt, so requests never
// overlap.
//
// Interactive Commands:
//   /attach <path>      Attach a .pdf, .docx or .txt file
//   /detach             Drop the attachment
//   /export [path]      Save the transcript
//   /copy               Copy the last reply to the clipboard
//   /models             List installed models
//   /help, /h           Show available commands
//   /quit, /q           Exit
//   Ctrl+C, Ctrl+D      Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/alfred-tui/internal/document"
	"github.com/jeranaias/alfred-tui/internal/export"
	"github.com/jeranaias/alfred-tui/internal/ollama"
	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// TYPES
// =============================================================================

// Client is the part of the Ollama client the REPL uses.
type Client interface {
	Stream(ctx context.Context, prompt string, onToken func(string), onComplete func(string)) error
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	Model() string
}

// Options configures a REPL.
type Options struct {
	Client  Client
	Session *session.Session
	Input   LineReader
	Out     io.Writer
	Err     io.Writer
	Logger  *zap.Logger
	Theme   *styles.Theme

	Extract   func(path string) (string, error)
	Clipboard func(string) error
	ExportDir string
	Now       func() time.Time
}

// REPL is the line-mode chat loop.
type REPL struct {
	client    Client
	session   *session.Session
	input     LineReader
	out       io.Writer
	errOut    io.Writer
	logger    *zap.Logger
	theme     *styles.Theme
	extract   func(string) (string, error)
	clipboard func(string) error
	exportDir string
	now       func() time.Time
}

// NewREPL creates a REPL, filling unset options with the real terminal,
// clipboard and extractor.
func NewREPL(opts Options) *REPL {
	if opts.Session == nil {
		opts.Session = session.New()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewPlainTheme()
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
	return &REPL{
		client:    opts.Client,
		session:   opts.Session,
		input:     opts.Input,
		out:       opts.Out,
		errOut:    opts.Err,
		logger:    opts.Logger.Named("repl"),
		theme:     opts.Theme,
		extract:   opts.Extract,
		clipboard: opts.Clipboard,
		exportDir: opts.ExportDir,
		now:       opts.Now,
	}
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run reads and handles lines until /quit, Ctrl+C, end of input or ctx
// cancellation. The input is closed on return.
func (r *REPL) Run(ctx context.Context) error {
	if r.input == nil {
		r.input = NewLineEditor()
	}
	defer r.input.Close()

	modelName := ollama.DefaultModel
	if r.client != nil {
		modelName = r.client.Model()
	}
	fmt.Fprintln(r.out, r.theme.HeaderTitle.Render("alfred")+r.theme.HeaderMeta.Render(" | "+modelName))
	fmt.Fprintln(r.out, r.theme.Hint.Render("Type a message, /help for commands, Ctrl+D to exit."))

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.input.ReadInput(r.theme.InputPrompt.Render("alfred> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if quit := r.Handle(ctx, line); quit {
			return nil
		}
	}
}

// Handle processes one input line and reports whether the REPL should exit.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "/") {
		if !strings.HasPrefix(trimmed, "//") {
			return r.command(ctx, trimmed)
		}
		line = trimmed[1:]
	}
	r.Send(ctx, line)
	return false
}

// Send appends the user turn, streams the reply to the output as it
// arrives and records the assistant turn when the stream ends.
func (r *REPL) Send(ctx context.Context, text string) {
	if !r.session.AppendUserTurn(text) {
		return
	}
	prompt := r.session.ComposePrompt()

	fmt.Fprint(r.out, r.theme.AssistantLabel.Render(session.RoleAssistant.String()+":")+" ")

	if r.client == nil {
		r.session.AppendAssistantTurn("")
		fmt.Fprintln(r.out)
		r.warn("Ollama client not configured")
		return
	}

	err := r.client.Stream(ctx, prompt,
		func(token string) {
			_, _ = io.WriteString(r.out, token)
		},
		func(reply string) {
			r.session.AppendAssistantTurn(reply)
		},
	)
	fmt.Fprintln(r.out)

	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("stream failed", zap.Error(err))
		r.warn(describeError(err, r.client.Model()))
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (r *REPL) command(ctx context.Context, input string) bool {
	name, args, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "quit", "q", "exit":
		return true
	case "help", "h", "?":
		r.printHelp()
	case "attach", "a":
		r.attach(args)
	case "detach":
		r.detach()
	case "export", "e":
		r.export(args)
	case "copy", "y":
		r.copyLastReply()
	case "models":
		r.listModels(ctx)
	default:
		r.warn("Unknown command /" + name + "; type /help")
	}
	return false
}

func (r *REPL) attach(path string) {
	path = strings.Trim(path, `"'`)
	if path == "" {
		r.warn("Usage: /attach <path>")
		return
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	text, err := r.extract(abs)
	if err != nil {
		r.logger.Warn("attachment extraction failed", zap.String("path", abs), zap.Error(err))
		if errors.Is(err, document.ErrUnsupportedFormat) {
			r.warn("Unsupported file type; use " + strings.Join(document.SupportedExtensions(), ", "))
		} else {
			r.warn("Could not read " + filepath.Base(abs))
		}
		return
	}

	name := filepath.Base(abs)
	r.session.SetAttachment(text, name, abs)
	fmt.Fprintln(r.out, r.theme.Status(styles.StatusSuccess).Render("[Attached file: "+name+"]"))
}

func (r *REPL) detach() {
	att := r.session.Attachment()
	if att.IsEmpty() && att.Path == "" {
		r.info("No file attached")
		return
	}
	r.session.ClearAttachment()
	r.info("[Detached file: " + att.DisplayName + "]")
}

func (r *REPL) export(path string) {
	if r.session.Len() == 0 {
		r.info("Nothing to export yet")
		return
	}
	target := export.ResolvePath(r.exportDir, strings.Trim(path, `"'`), r.now())
	modelName := ollama.DefaultModel
	if r.client != nil {
		modelName = r.client.Model()
	}
	tr := &export.Transcript{
		Model:      modelName,
		Attachment: r.session.Attachment().DisplayName,
		Turns:      r.session.Turns(),
		ExportedAt: r.now(),
	}

	written, err := export.ExportToFile(tr, target, nil)
	if err != nil {
		r.logger.Warn("export failed", zap.String("path", target), zap.Error(err))
		r.warn("Export failed: " + err.Error())
		return
	}
	r.info("Exported to " + written)
}

func (r *REPL) copyLastReply() {
	reply := r.session.LastReply()
	if err := r.clipboard(reply); err != nil {
		r.logger.Warn("clipboard write failed", zap.Error(err))
		r.warn("Clipboard unavailable")
		return
	}
	r.info(fmt.Sprintf("Copied last reply (%d chars)", len([]rune(reply))))
}

func (r *REPL) listModels(ctx context.Context) {
	if r.client == nil {
		r.warn("Ollama client not configured")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	models, err := r.client.ListModels(ctx)
	if err != nil {
		r.logger.Warn("list models failed", zap.Error(err))
		r.warn(describeError(err, r.client.Model()))
		return
	}
	if len(models) == 0 {
		r.info("No models installed. Pull one with: ollama pull " + r.client.Model())
		return
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	for _, m := range models {
		marker := "  "
		if m.Name == r.client.Model() {
			marker = "* "
		}
		fmt.Fprintf(r.out, "%s%-28s %s\n", marker, m.Name, m.FormatSize())
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `Commands:
  /attach <path>   attach a .pdf, .docx or .txt file as context
  /detach          drop the attached file
  /export [path]   save the transcript (.txt, .md or .json)
  /copy            copy the last reply to the clipboard
  /models          list models available to Ollama
  /quit            exit (also Ctrl+C or Ctrl+D)
  //text           send a message starting with /
`)
}

func (r *REPL) info(msg string) {
	fmt.Fprintln(r.out, r.theme.Notice.Render(msg))
}

func (r *REPL) warn(msg string) {
	fmt.Fprintln(r.errOut, r.theme.Status(styles.StatusWarning).Render(msg))
}

func describeError(err error, model string) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Ollama is not running. Start it with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "Model " + model + " not found. Pull it with: ollama pull " + model
	case ollama.IsTimeout(err):
		return "Request timed out; partial reply kept"
	default:
		return "Reply interrupted: " + err.Error()
	}
}
