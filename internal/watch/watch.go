// Package watch re-runs a callback when the mission tree under a root
// directory changes.
//
// fsnotify watches are not recursive: the root, every mission directory
// and its XML directory are watched, which covers the layouts the
// scanner accepts. Mission directories created later are picked up as
// they appear.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"liciel/internal/files"
	"liciel/internal/scanner"
)

// Stats tracks watcher activity.
type Stats struct {
	Events      int
	Triggers    int
	Errors      int
	LastEvent   time.Time
	LastPath    string
	LastTrigger time.Time
}

// Watcher debounces file system events below a root directory into calls
// of a callback. The callback runs on the watcher goroutine, so calls
// never overlap.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	onChange func(context.Context)
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopped  bool
	stats    Stats
}

// New returns a Watcher for root. onChange runs once the tree has been
// quiet for debounce after a change.
func New(root string, debounce time.Duration, onChange func(context.Context), logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		return nil, errors.New("debounce must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		watcher:  fw,
		root:     root,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds the watches and starts the event loop. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	dirs, err := files.ListDirectories(w.root)
	if err != nil {
		w.logger.Warn("failed to list mission directories", slog.String("error", err.Error()))
	}
	for _, d := range dirs {
		w.addMission(d.Path)
	}

	w.logger.Info("watching mission root",
		slog.String("root", w.root),
		slog.Int("missions", len(dirs)),
		slog.Duration("debounce", w.debounce))

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the watches. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	running := w.running
	w.mu.Unlock()

	close(w.stopCh)
	if running {
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("failed to close watcher", slog.String("error", err.Error()))
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
				fire = timer.C
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", slog.String("error", err.Error()))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-fire:
			fire = nil
			w.trigger(ctx)
		}
	}
}

// handleEvent records event and reports whether it should schedule a
// rescan.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == filepath.Clean(w.root) {
				w.addMission(event.Name)
			} else if strings.EqualFold(filepath.Base(event.Name), scanner.XMLDirName) {
				w.add(event.Name)
			}
		}
	}

	w.logger.Debug("tree changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEvent = time.Now()
	w.stats.LastPath = event.Name
	w.mu.Unlock()
	return true
}

func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	w.stats.Triggers++
	w.stats.LastTrigger = time.Now()
	w.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("change callback panicked", slog.Any("panic", r))
		}
	}()
	if w.onChange != nil {
		w.onChange(ctx)
	}
}

// addMission watches a mission directory and its XML directory.
func (w *Watcher) addMission(dir string) {
	w.add(dir)
	if xmlDir, ok := files.FindDir(dir, scanner.XMLDirName); ok {
		w.add(xmlDir)
	}
}

func (w *Watcher) add(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}
