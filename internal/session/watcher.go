package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/logging"
)

// FileWatcher calls onChange when a single file is written or replaced.
// The parent directory is watched so editors that save by rename are seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()
	logger   *logrus.Entry
	mu       sync.Mutex
	timer    *time.Timer
}

// NewFileWatcher starts watching the directory containing path
func NewFileWatcher(path string, debounce time.Duration, onChange func(), logger *logrus.Entry) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &FileWatcher{
		watcher:  watcher,
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Start blocks until ctx is cancelled, then closes the watcher
func (w *FileWatcher) Start(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// handleChange fires onChange once the file has been quiet for the debounce
// window, so a save split into several writes is reported once
func (w *FileWatcher) handleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && w.timer.Stop() {
		w.logger.Debugf("Debounced: %s", filepath.Base(w.path))
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Infof("File changed: %s", filepath.Base(w.path))
		w.onChange()
	})
}
