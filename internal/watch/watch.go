// Package watch triggers configuration reloads when the config file changes
// on disk. The parent directory is watched so editors that rename-over the
// file are seen, and change bursts are debounced before the callback fires.
package watch

import (
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DebounceWindow coalesces bursts of file-change events into one reload.
const DebounceWindow = 250 * time.Millisecond

// Watcher follows one configuration file and invokes the callback after each
// settled burst of changes.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// New starts watching path. onChange runs on the debounce timer's goroutine
// after the debounce window closes.
func New(path string, onChange func(), log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	fire := debounce.New(DebounceWindow)
	go func() {
		for {
			select {
			case <-w.done:
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Debug().Str("op", ev.Op.String()).Msg("config file changed")
				fire(onChange)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
