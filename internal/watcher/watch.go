package watcher

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must be quiet before a batch is sent.
const DefaultDebounce = 200 * time.Millisecond

// Watcher wraps fsnotify and sends batches of changed paths. Events are
// coalesced until no change has been seen for the debounce interval.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Changes chan []string
	Errors  chan error

	root     string
	ignore   []string
	debounce time.Duration
	logger   *slog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore sets glob patterns matched against each path element. Matching
// directories are not watched and matching files produce no events. ".git" is
// always ignored.
func WithIgnore(patterns []string) Option {
	return func(w *Watcher) { w.ignore = append([]string{".git"}, patterns...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a new file watcher for dir and every directory below it.
func New(dir string, opts ...Option) (*Watcher, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		Changes:  make(chan []string, 1),
		Errors:   make(chan error, 1),
		root:     root,
		ignore:   []string{".git"},
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching for changes in a new goroutine. Changes and Errors
// are closed after Close.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.Changes)
		defer close(w.Errors)
		w.loop()
	}()
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := map[string]struct{}{}

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("watching new directory", "path", ev.Name, "err", err)
					}
				}
			}
			w.logger.Debug("fs event", "op", ev.Op.String(), "path", ev.Name)
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			slices.Sort(batch)
			clear(pending)
			select {
			case w.Changes <- batch:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// addTree watches dir and its subdirectories, skipping ignored ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The directory may vanish between the event and the walk.
			if path != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// ignored reports whether any element of path below the root matches an
// ignore pattern.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for rel != "." && rel != string(filepath.Separator) && rel != "" {
		base := filepath.Base(rel)
		for _, pattern := range w.ignore {
			if ok, _ := filepath.Match(pattern, base); ok {
				return true
			}
		}
		rel = filepath.Dir(rel)
	}
	return false
}
