package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // emit files that already exist
	Debounce    time.Duration
}

// Watch emits paths of matching files as they are created or rewritten under
// the configured roots. Both channels close when ctx ends.
func (s *Scanner) Watch(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		s.Logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.Logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if s.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && s.Allowed(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			s.Logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var timer *time.Timer
		flushCh := make(chan struct{}, 1)
		pending := map[string]struct{}{}

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		flush := func() {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return
				}
			}
		}

		defer close(errCh)
		defer close(evCh)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
			if err := w.Close(); err != nil {
				s.Logger.Warn("watcher close failed", "error", err)
			}
		}()

		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flushCh:
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					s.watchIfDir(w, e.Name)
				}
				if !s.Allowed(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				if s.SkipHidden && IsHidden(e.Name) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.Debounce, func() {
					select {
					case flushCh <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.Logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func (s *Scanner) watchIfDir(w *fsnotify.Watcher, path string) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		s.Logger.Warn("failed to add new directory to watcher", "path", path, "error", err)
	}
}
