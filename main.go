// alfred - A terminal chat client for local Ollama models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/alfred-tui/internal/cli"
	"github.com/jeranaias/alfred-tui/internal/config"
	"github.com/jeranaias/alfred-tui/internal/document"
	"github.com/jeranaias/alfred-tui/internal/logging"
	"github.com/jeranaias/alfred-tui/internal/ollama"
	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/ui/chat"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for watcher callbacks
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// rootFlags holds the global command-line flags.
type rootFlags struct {
	configPath string
	model      string
	ollamaURL  string
	plain      bool
	exportDir  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "alfred",
		Short: "Chat with a local Ollama model",
		Long: `alfred is a terminal chat client for models served by a local Ollama.

Attach a .pdf, .docx or .txt file with /attach and its text is sent as
context with every question. Replies stream in as they are generated.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.alfred/config.toml)")
	root.Flags().StringVarP(&flags.model, "model", "m", "", "Ollama model to chat with")
	root.Flags().StringVar(&flags.ollamaURL, "ollama-url", "", "Ollama server address")
	root.Flags().BoolVar(&flags.plain, "plain", false, "use the line-mode REPL instead of the full-screen UI")
	root.Flags().StringVar(&flags.exportDir, "export-dir", "", "directory for exported transcripts")

	root.AddCommand(newConfigCmd(flags))
	return root
}

// =============================================================================
// CHAT
// =============================================================================

func runChat(cmd *cobra.Command, flags *rootFlags) error {
	cfg := loadConfig(cmd.ErrOrStderr(), flags.configPath)
	if flags.model != "" {
		cfg.Local.OllamaModel = flags.model
	}
	if flags.ollamaURL != "" {
		cfg.Local.OllamaURL = flags.ollamaURL
	}
	if flags.exportDir != "" {
		cfg.Export.Dir = flags.exportDir
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", Version),
		zap.String("model", cfg.Local.OllamaModel),
		zap.String("ollama_url", cfg.Local.OllamaURL))

	lipgloss.SetColorProfile(cli.GetColorProfile())

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:        cfg.Local.OllamaURL,
		Model:          cfg.Local.OllamaModel,
		ConnectTimeout: cfg.ConnectTimeout(),
		Logger:         logger,
	})
	defer client.Close()

	sess := session.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.plain || cfg.UI.Plain || !cli.CanRunTUI() {
		return runREPL(ctx, cmd, cfg, client, sess, logger)
	}
	return runTUI(ctx, cfg, client, sess, logger)
}

func runREPL(ctx context.Context, cmd *cobra.Command, cfg *config.Config, client *ollama.Client, sess *session.Session, logger *zap.Logger) error {
	theme := styles.NewPlainTheme()
	if cli.ColorsEnabled() {
		theme = styles.NewTheme()
	}

	var input cli.LineReader
	if !cli.IsTTY() {
		input = newPipeReader(cmd.InOrStdin())
	}

	repl := cli.NewREPL(cli.Options{
		Client:    client,
		Session:   sess,
		Input:     input,
		Out:       cmd.OutOrStdout(),
		Err:       cmd.ErrOrStderr(),
		Logger:    logger,
		Theme:     theme,
		ExportDir: cfg.Export.Dir,
	})
	return repl.Run(ctx)
}

func runTUI(ctx context.Context, cfg *config.Config, client *ollama.Client, sess *session.Session, logger *zap.Logger) error {
	theme := styles.NewTheme()
	if !cli.ColorsEnabled() {
		theme = styles.NewPlainTheme()
	}

	opts := chat.Options{
		Client:         client,
		Session:        sess,
		Logger:         logger,
		Theme:          theme,
		RenderMarkdown: cfg.UI.RenderMarkdown,
		ExportDir:      cfg.Export.Dir,
	}

	if cfg.Attachment.Watch {
		watcher, err := document.NewWatcher(nil, func(path, text string) {
			send(chat.AttachmentChangedMsg{Path: path, Text: text})
		}, logger)
		if err != nil {
			logger.Warn("attachment watcher unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
			opts.Watcher = watcher
		}
	}

	model := chat.New(opts)
	defer model.Shutdown()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	model.SetSender(p)

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	programMu.Lock()
	programRef = p
	programMu.Unlock()
	defer func() {
		programMu.Lock()
		programRef = nil
		programMu.Unlock()
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("program exited with error", zap.Error(err))
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}

// send delivers msg to the running program, if any.
func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// =============================================================================
// SETUP HELPERS
// =============================================================================

// loadConfig loads the config file, falling back to defaults with a
// warning when it cannot be read or is invalid.
func loadConfig(errOut io.Writer, path string) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(errOut, "Warning: %v (using defaults)\n", err)
	}
	return cfg
}

// newLogger opens the file logger. Failure is reported once and logging
// is disabled.
func newLogger(errOut io.Writer, cfg *config.Config) *zap.Logger {
	path := cfg.Logging.Path
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			fmt.Fprintf(errOut, "Warning: logging disabled: %v\n", err)
			return zap.NewNop()
		}
		path = p
	}
	logger, err := logging.NewOrNop(logging.Options{Path: path, Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(errOut, "Warning: logging disabled: %v\n", err)
	}
	return logger
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func newConfigCmd(flags *rootFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change alfred settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.ErrOrStderr(), flags.configPath)
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.ErrOrStderr(), flags.configPath)
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.ErrOrStderr(), flags.configPath)
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			var err error
			if flags.configPath != "" {
				err = config.SaveTOML(cfg, flags.configPath)
			} else {
				err = config.Save(cfg)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List setting names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.GetAllKeys(), "\n"))
		},
	}

	configCmd.AddCommand(showCmd, getCmd, setCmd, keysCmd)
	return configCmd
}

// =============================================================================
// PIPED INPUT
// =============================================================================

// pipeReader reads lines from non-terminal stdin without line editing.
type pipeReader struct {
	scanner *bufio.Scanner
}

func newPipeReader(r io.Reader) *pipeReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &pipeReader{scanner: scanner}
}

// ReadInput returns the next line. The prompt is not shown for piped input.
func (p *pipeReader) ReadInput(string) (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (p *pipeReader) Close() {}
