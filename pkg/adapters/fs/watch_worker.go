package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notebox/pkg/core"
)

// Watch emits change events for the notes of root whose workspace-relative
// path matches pattern (doublestar syntax, empty means everything).
// The returned channel is closed once ctx is done.
func (r *Repository) Watch(ctx context.Context, root, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern: %s", pattern)
	}

	notesDir, err := r.resolver.NotesDir(root)
	if err != nil {
		return nil, err
	}
	if r.config.ReadOnly {
		if _, err := os.Stat(notesDir); err != nil {
			return nil, fmt.Errorf("notes directory unavailable: %w", err)
		}
	} else if err := os.MkdirAll(notesDir, r.config.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}

	events := make(chan core.Event, r.config.EventBuffer)
	w := newWatchWorker(r, root, notesDir, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	root      string
	notesDir  string
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	known     map[string]bool // note ids present on disk
	cancel    context.CancelFunc
}

func newWatchWorker(repo *Repository, root, notesDir, pattern string, events chan core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("notes-watcher"),
		repo:       repo,
		root:       root,
		notesDir:   notesDir,
		pattern:    pattern,
		events:     events,
		known:      make(map[string]bool),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.addTree(watcher, w.notesDir); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)
	w.repo.watcherStarted()

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"notes_dir":         w.notesDir,
			"pattern":           w.pattern,
		}
	})
}

// addTree registers dir and, for nested policies, every visible subdirectory.
// Notes already present are recorded so overwrites report MODIFY.
func (w *watchWorker) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (!w.repo.resolver.Recursive() || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if loc, ok := w.locate(path); ok {
			w.known[loc.ID] = true
		}
		return nil
	})
}

func (w *watchWorker) locate(path string) (Location, bool) {
	rel, err := filepath.Rel(w.notesDir, path)
	if err != nil {
		return Location{}, false
	}
	return w.repo.resolver.Locate(w.root, filepath.ToSlash(rel))
}

// mapEventType translates a raw notification, tracking which notes exist.
func (w *watchWorker) mapEventType(event fsnotify.Event, id string) core.EventType {
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if w.known[id] {
			return core.EventModify
		}
		w.known[id] = true
		return core.EventCreate
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); err == nil {
			return "" // Replaced in place
		}
		delete(w.known, id)
		return core.EventDelete
	}
	return ""
}

// processFilesystemEvent handles filtering, mapping, and debouncing of filesystem events.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) && w.repo.resolver.Recursive() {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(w.watcher, event.Name); err != nil {
				w.handleWatcherError(err)
			}
			return false
		}
	}

	loc, ok := w.locate(event.Name)
	if !ok {
		return false
	}
	if match, _ := doublestar.Match(w.pattern, loc.Path); !match {
		return false
	}

	eType := w.mapEventType(event, loc.ID)
	if eType == "" {
		return false
	}

	w.sendEvent(ctx, core.Event{
		Type:      eType,
		ID:        loc.ID,
		Timestamp: time.Now().Unix(),
	})
	return true
}

// sendEvent enqueues an event via the debouncer, protecting against channel closure during shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) handleWatcherError(err error) {
	w.repo.config.Logger.Error("fsnotify error", "error", err)
	if w.repo.config.ErrorHandler != nil {
		w.repo.config.ErrorHandler(err)
	}
}

// run is the main event loop for the watcher worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)

			// Full stack only when debug logging is on.
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer close(w.events)
	defer w.debouncer.stopAndWait(5 * time.Second)
	defer w.repo.watcherStopped()
	defer w.watcher.Close()

	return w.mainEventLoop(ctx)
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}
