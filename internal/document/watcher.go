// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// ATTACHMENT WATCHER
// =============================================================================

// DefaultDebounce is how long a file must stay quiet before re-extraction.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc receives the re-extracted text of the watched file.
type ChangeFunc func(path, text string)

// Watcher re-extracts a single file whenever it is written or recreated.
// The parent directory is watched so that editors which replace files by
// rename are seen. A failed extraction is logged and the previous text kept.
type Watcher struct {
	extractor *Extractor
	watcher   *fsnotify.Watcher
	onChange  ChangeFunc
	logger    *zap.Logger
	debounce  time.Duration

	mu    sync.Mutex
	path  string
	dir   string
	timer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher that reports changes to onChange. It does
// not watch anything until Watch is called.
func NewWatcher(extractor *Extractor, onChange ChangeFunc, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if extractor == nil {
		extractor = defaultExtractor
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		extractor: extractor,
		watcher:   fw,
		onChange:  onChange,
		logger:    logger.Named("watcher"),
		debounce:  DefaultDebounce,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// SetDebounce changes the quiet period. Call before Watch.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Watch re-targets the watcher at path, dropping any previous target.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.dir != "" && w.dir != dir {
		_ = w.watcher.Remove(w.dir)
	}
	if w.dir != dir {
		if err := w.watcher.Add(dir); err != nil {
			w.dir, w.path = "", ""
			return err
		}
	}
	w.dir, w.path = dir, abs
	w.logger.Debug("watching attachment", zap.String("path", abs))
	return nil
}

// Path returns the file currently watched, or "".
func (w *Watcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Stop stops watching the current file without closing the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.dir != "" {
		_ = w.watcher.Remove(w.dir)
	}
	w.dir, w.path = "", ""
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.Stop()
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

// processEvents processes file system events
func (w *Watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule debounces bursts of events for the watched path.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "" || filepath.Clean(name) != w.path {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	path := w.path
	w.timer = time.AfterFunc(w.debounce, func() { w.reload(path) })
}

func (w *Watcher) reload(path string) {
	if w.ctx.Err() != nil || w.Path() != path {
		return
	}

	text, err := w.extractor.Extract(path)
	if err != nil {
		w.logger.Warn("re-extraction failed, keeping previous text",
			zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("attachment changed", zap.String("path", path), zap.Int("bytes", len(text)))
	if w.onChange != nil {
		w.onChange(path, text)
	}
}
