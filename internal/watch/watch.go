// Package watch reports batches of changed LaTeX sources.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/alnah/go-texnotes/internal/fileutil"
)

// ErrWatch wraps failures to set up the underlying watcher.
var ErrWatch = errors.New("cannot watch sources")

// DefaultDelay is the quiet period before a batch is delivered.
const DefaultDelay = 200 * time.Millisecond

// Handler receives one batch of sorted, unique, absolute paths. Calls never
// overlap: changes arriving during a call form the next batch.
type Handler func(ctx context.Context, paths []string)

// Watcher watches a source tree for .tex changes. Editors that save by
// rename and newly created directories are handled.
type Watcher struct {
	root  string
	delay time.Duration
	log   *zap.Logger
	fsw   *fsnotify.Watcher
	extra map[string]bool

	mu      sync.Mutex
	pending map[string]struct{}
}

// New watches every directory under root. Extra files outside the .tex
// filter (a nav file, a main file elsewhere) are reported too.
func New(root string, delay time.Duration, log *zap.Logger, extra ...string) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatch, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatch, err)
	}
	w := &Watcher{
		root:    absRoot,
		delay:   delay,
		log:     log,
		fsw:     fsw,
		extra:   make(map[string]bool, len(extra)),
		pending: make(map[string]struct{}),
	}
	if err := w.addTree(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	for _, p := range extra {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.extra[abs] = true
		// Watch the directory: editors replace files, which drops a file watch.
		if dir := filepath.Dir(abs); !w.inTree(dir) {
			if err := fsw.Add(dir); err != nil {
				log.Warn("cannot watch file", zap.String("path", abs), zap.Error(err))
			}
		}
	}
	return w, nil
}

// Run delivers batches to h until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	debounced := debounce.New(w.delay)
	ready := make(chan struct{}, 1)
	flush := func() {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ready:
				if batch := w.take(); len(batch) > 0 {
					h(ctx, batch)
				}
			}
		}
	}()

	defer func() {
		debounced(func() {})
		_ = w.fsw.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				debounced(flush)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// handle records ev and reports whether it belongs in a batch.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("cannot watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			return w.queueTree(ev.Name)
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if !w.relevant(ev.Name) {
		return false
	}
	w.log.Debug("source changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	w.queue(ev.Name)
	return true
}

// queueTree queues the sources of a directory that appeared at once, as
// happens when a chapter folder is moved in.
func (w *Watcher) queueTree(dir string) bool {
	files, err := fileutil.FindTeX(dir)
	if err != nil {
		return false
	}
	for _, f := range files {
		w.queue(f)
	}
	return len(files) > 0
}

func (w *Watcher) relevant(p string) bool {
	if w.extra[p] {
		return true
	}
	if !fileutil.IsTeX(p) || !w.inTree(p) {
		return false
	}
	// Editor swap and backup files such as .#notes.tex.
	return !strings.HasPrefix(filepath.Base(p), ".")
}

func (w *Watcher) inTree(p string) bool {
	rel, err := filepath.Rel(w.root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) queue(p string) {
	w.mu.Lock()
	w.pending[p] = struct{}{}
	w.mu.Unlock()
}

// take drains the pending set in sorted order.
func (w *Watcher) take() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	clear(w.pending)
	sort.Strings(batch)
	return batch
}

// addTree watches dir and its subdirectories, skipping hidden ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWatch, err)
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWatch, p, err)
		}
		return nil
	})
}
