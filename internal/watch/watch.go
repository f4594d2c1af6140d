// Package watch provides an optional live-reload mode: re-running the
// simulation whenever one of the input trace files changes on disk.
//
// Grounded on the teacher's internal/runtime/vfs/watch_fsnotify.go
// (FSNotifyWatcher wrapping fsnotify.Watcher and translating raw events
// into a small channel-based Event type), scaled down from a general
// virtual filesystem watcher to just the trace files memsim was pointed
// at.
package watch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event names a trace file that was rewritten.
type Event struct {
	Path string
}

// Watcher notifies on writes to a fixed set of trace files.
type Watcher struct {
	w      *fsnotify.Watcher
	events chan Event
}

// New watches the directories containing paths and filters notifications
// down to exactly those files (fsnotify watches directories, not files).
func New(paths []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, err
		}
	}

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		watched[abs] = true
	}

	watcher := &Watcher{w: w, events: make(chan Event, 16)}
	go watcher.loop(watched)

	return watcher, nil
}

func (watcher *Watcher) loop(watched map[string]bool) {
	defer close(watcher.events)

	for {
		select {
		case ev, ok := <-watcher.w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				abs = ev.Name
			}
			if watched[abs] {
				watcher.events <- Event{Path: abs}
			}
		case _, ok := <-watcher.w.Errors:
			if !ok {
				return
			}
		}
	}
}

// Events delivers one notification per qualifying write.
func (watcher *Watcher) Events() <-chan Event { return watcher.events }

// Close stops the underlying fsnotify watcher.
func (watcher *Watcher) Close() error { return watcher.w.Close() }
