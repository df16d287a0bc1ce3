// Package devwatch turns /dev node creation and removal into serial device
// attach/detach events.
package devwatch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/ttydev"
)

// Watcher watches one directory for serial device nodes.
type Watcher struct {
	dir    string
	logger *slog.Logger
}

var _ serialsession.EventSource = (*Watcher)(nil)

// New creates a watcher for dir, normally "/dev". A nil logger discards output.
func New(dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{dir: dir, logger: logger}
}

// Watch starts watching. The returned channel is closed when ctx is done or
// the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) (<-chan serialsession.DeviceEvent, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, err
	}

	out := make(chan serialsession.DeviceEvent)
	go w.run(ctx, fw, out)
	return out, nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, out chan<- serialsession.DeviceEvent) {
	defer close(out)
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("device watch error", "dir", w.dir, "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			de, ok := translate(ev)
			if !ok {
				continue
			}
			select {
			case out <- de:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps a filesystem event to a device event. Non-serial names and
// attribute changes are dropped.
func translate(ev fsnotify.Event) (serialsession.DeviceEvent, bool) {
	if !ttydev.IsSerialName(filepath.Base(ev.Name)) {
		return serialsession.DeviceEvent{}, false
	}
	h := serialsession.Handle(ev.Name)
	switch {
	case ev.Has(fsnotify.Create):
		return serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: h}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: h}, true
	}
	return serialsession.DeviceEvent{}, false
}
