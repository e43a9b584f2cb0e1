package main

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 150 * time.Millisecond

// fileChangedMsg reports that the open project changed on disk.
type fileChangedMsg struct {
	path string
	at   time.Time
}

// projectWatcher watches the directory of the open project and reports
// writes to that file. The directory is watched rather than the file so
// atomic saves (rename over the old file) are seen.
type projectWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan fileChangedMsg
	stopCh  chan struct{}
	logger  *zap.Logger
}

func newProjectWatcher(path string, logger *zap.Logger) (*projectWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	w := &projectWatcher{
		watcher: watcher,
		path:    filepath.Clean(path),
		events:  make(chan fileChangedMsg, 1),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
	go w.loop()
	logger.Debug("watching project", zap.String("path", path))
	return w, nil
}

func (w *projectWatcher) Path() string { return w.path }

func (w *projectWatcher) Close() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *projectWatcher) loop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case w.events <- fileChangedMsg{path: w.path, at: time.Now()}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Next waits for the next change. The UI re-issues it after every
// delivery.
func (w *projectWatcher) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.events:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}
