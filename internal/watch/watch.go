// Package watch re-runs an analysis when class files or archives under a
// directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/unbound-force/classlens/internal/corpus"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the sorted paths changed since the previous call.
// Calls never overlap.
type Handler func(ctx context.Context, changed []string)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must stay quiet before Handler runs.
	Debounce time.Duration

	// Logger receives watch lifecycle messages. Nil discards.
	Logger *charmlog.Logger
}

// Watcher watches a directory tree recursively and batches relevant
// changes into debounced Handler calls.
type Watcher struct {
	root     string
	fw       *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *charmlog.Logger
}

// New creates a Watcher for root and registers every non-hidden
// directory beneath it.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watching %s: not a directory", root)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = charmlog.New(io.Discard)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		fw:       fw,
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers changes to the handler until ctx is done, then closes
// the underlying watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fw.Close(); err != nil {
			w.logger.Warn("closing watcher", "err", err)
		}
	}()
	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if ev.Has(fsnotify.Create) && w.isDir(ev.Name) {
				// Files may land in the directory before it is watched.
				if err := w.addTree(ev.Name); err != nil {
					w.logger.Warn("watching new directory", "dir", ev.Name, "err", err)
				}
			} else if !Relevant(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.logger.Info("changes detected", "files", len(changed))
			w.handler(ctx, changed)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Relevant reports whether a change to path can alter a scan result.
func Relevant(path string) bool {
	return strings.HasSuffix(path, corpus.ClassSuffix) || corpus.IsArchive(path)
}

func (w *Watcher) isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addTree registers dir and its subdirectories, skipping hidden ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are not watched.
			if path == dir {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
