package serialsession_test

import (
	"context"
	"errors"
	"testing"
	"time"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/mockhost"
)

func TestEventBridgeForwards(t *testing.T) {
	host := mockhost.New()
	reg := serialsession.NewRegistry(host)

	events := make(chan serialsession.DeviceEvent, 4)
	reg.OnAttach(func(h serialsession.Handle) {
		events <- serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: h}
	})
	reg.OnDetach(func(h serialsession.Handle) {
		events <- serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: h}
	})

	ctx, cancel := context.WithCancel(context.Background())
	bridge := serialsession.NewEventBridge(host, reg, nil)
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	host.Emit(serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: "/dev/ttyUSB0"})
	host.Emit(serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: "/dev/ttyUSB0"})

	for _, want := range []serialsession.EventKind{serialsession.DeviceAttached, serialsession.DeviceDetached} {
		select {
		case ev := <-events:
			if ev.Kind != want || ev.Handle != "/dev/ttyUSB0" {
				t.Errorf("event = %+v, want %v", ev, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for %v event", want)
		}
	}

	if len(reg.Known()) != 0 {
		t.Errorf("events changed known ports: %v", reg.Known())
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEventBridgeWatchError(t *testing.T) {
	host := mockhost.New()
	host.FailWatch(serialsession.ErrPermissionDenied)
	bridge := serialsession.NewEventBridge(host, serialsession.NewRegistry(host), nil)

	err := bridge.Run(context.Background())
	if !errors.Is(err, serialsession.ErrDevice) || !errors.Is(err, serialsession.ErrPermissionDenied) {
		t.Errorf("Run() error = %v, want DeviceError wrapping ErrPermissionDenied", err)
	}
}
