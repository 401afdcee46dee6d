package content

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long changes accumulate before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a directory-backed catalog when its YAML files change.
type Watcher struct {
	dir      string
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	pending atomic.Bool
	reloads atomic.Int64
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher over dir feeding catalog.
func NewWatcher(dir string, catalog *Catalog, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		catalog:  catalog,
		watcher:  fsw,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Start watches dir and every directory below it.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if base := d.Name(); strings.HasPrefix(base, ".") && path != w.dir {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents(ctx)

	w.logger.Info("Content watcher started", "dir", w.dir, "debounce", w.debounce)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// Reloads returns how many reloads have completed.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			if w.pending.Swap(false) {
				w.reload()
			}
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if strings.ToLower(filepath.Ext(event.Name)) != ".yaml" {
		return
	}
	w.pending.Store(true)
	w.logger.Debug("Catalog change detected", "path", event.Name, "op", event.Op.String())
}

func (w *Watcher) reload() {
	if err := w.catalog.Reload(); err != nil {
		w.logger.Error("Catalog reload failed, keeping previous content", "error", err)
		return
	}
	w.reloads.Add(1)
	w.logger.Info("Content catalog reloaded", "dir", w.dir)
}
