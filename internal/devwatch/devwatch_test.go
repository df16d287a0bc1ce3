package devwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	serialsession "github.com/allbin/go-serialsession"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		event  fsnotify.Event
		want   serialsession.EventKind
		wantOK bool
	}{
		{"usb attach", fsnotify.Event{Name: "/dev/ttyUSB0", Op: fsnotify.Create}, serialsession.DeviceAttached, true},
		{"acm detach", fsnotify.Event{Name: "/dev/ttyACM1", Op: fsnotify.Remove}, serialsession.DeviceDetached, true},
		{"rename away", fsnotify.Event{Name: "/dev/ttyS0", Op: fsnotify.Rename}, serialsession.DeviceDetached, true},
		{"chmod ignored", fsnotify.Event{Name: "/dev/ttyUSB0", Op: fsnotify.Chmod}, 0, false},
		{"virtual terminal", fsnotify.Event{Name: "/dev/tty1", Op: fsnotify.Create}, 0, false},
		{"other device", fsnotify.Event{Name: "/dev/sda1", Op: fsnotify.Create}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := translate(tt.event)
			if ok != tt.wantOK {
				t.Fatalf("translate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (ev.Kind != tt.want || ev.Handle != serialsession.Handle(tt.event.Name)) {
				t.Errorf("translate() = %+v, want %v %s", ev, tt.want, tt.event.Name)
			}
		})
	}
}

func TestWatchDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := New(dir, nil).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	next := func() serialsession.DeviceEvent {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for device event")
			return serialsession.DeviceEvent{}
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	node := filepath.Join(dir, "ttyUSB3")
	if err := os.WriteFile(node, nil, 0644); err != nil {
		t.Fatal(err)
	}

	ev := next()
	if ev.Kind != serialsession.DeviceAttached || ev.Handle != serialsession.Handle(node) {
		t.Errorf("first event = %+v, want attach of %s", ev, node)
	}

	if err := os.Remove(node); err != nil {
		t.Fatal(err)
	}
	ev = next()
	if ev.Kind != serialsession.DeviceDetached || ev.Handle != serialsession.Handle(node) {
		t.Errorf("second event = %+v, want detach of %s", ev, node)
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			// Drain at most one late event, then expect close.
			<-events
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	_, err := New("/nonexistent/dev", nil).Watch(context.Background())
	if err == nil {
		t.Error("Expected error watching missing directory")
	}
}
