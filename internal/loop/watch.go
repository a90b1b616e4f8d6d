package loop

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// controlWatcher watches the state directory for the stop and resume marker
// files so the loop wakes up promptly instead of waiting out a full sleep
// interval. The loop still stats the markers each spin; the watcher is only
// a wakeup, never the authority.
type controlWatcher struct {
	w      *fsnotify.Watcher
	events chan string
}

func newControlWatcher(dir string, log zerolog.Logger) (*controlWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	cw := &controlWatcher{w: w, events: make(chan string, 4)}
	go cw.run(log)
	return cw, nil
}

func (cw *controlWatcher) run(log zerolog.Logger) {
	for {
		select {
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if name != "stop" && name != "resume" {
				continue
			}
			log.Debug().Str("marker", name).Msg("control marker appeared")
			select {
			case cw.events <- name:
			default:
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("control watcher error")
		}
	}
}

func (cw *controlWatcher) Close() error { return cw.w.Close() }
