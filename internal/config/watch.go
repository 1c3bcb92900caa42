package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of events an editor produces when saving.
const reloadDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path      string
	overrides []Override
	onChange  func(*Config)
	watcher   *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching path. Each successful reload is passed to onChange
// (from the watcher goroutine); a reload that fails to parse or validate is
// logged and the previous configuration stays in effect. overrides are
// re-applied on every reload so flags keep their precedence.
func Watch(path string, onChange func(*Config), overrides ...Override) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:      filepath.Clean(path),
		overrides: overrides,
		onChange:  onChange,
		watcher:   fw,
		done:      make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the file watcher.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDelay, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path, w.overrides...)
	if err != nil {
		slog.Warn("config: reload failed, keeping current settings", "path", w.path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", w.path)
	w.onChange(cfg)
}
