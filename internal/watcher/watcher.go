// Package watcher observes the session data root for new or appended
// transcript files. It exists purely to nudge open dashboards into
// re-requesting; the parsing core stays cache-free and re-reads files on
// every request regardless.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const debounceInterval = 500 * time.Millisecond

// Watcher monitors the data root and its project directories. fsnotify has
// no recursive mode, so newly created project directories are added to the
// watch list as they appear.
type Watcher struct {
	root     string
	onChange func()
	watcher  *fsnotify.Watcher
}

// New creates a Watcher over root. onChange is called, debounced, whenever
// a .jsonl file is created or written anywhere under it.
func New(root string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{root: root, onChange: onChange, watcher: fsw}, nil
}

// Run watches until ctx is cancelled. A missing data root is not an error;
// the watcher simply idles until cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addAll(); err != nil {
		log.Warn().Err(err).Str("root", w.root).Msg("Data root not watchable")
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// A new project directory needs its own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						log.Debug().Err(err).Str("dir", event.Name).Msg("Failed to watch new project dir")
					}
					continue
				}
			}

			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, w.onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// addAll watches the root and every existing project directory.
func (w *Watcher) addAll() error {
	if err := w.watcher.Add(w.root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := w.watcher.Add(filepath.Join(w.root, entry.Name())); err != nil {
			log.Debug().Err(err).Str("dir", entry.Name()).Msg("Failed to watch project dir")
		}
	}
	return nil
}
