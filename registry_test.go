package serialsession_test

import (
	"context"
	"errors"
	"testing"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/mockhost"
)

func TestEnumerateOnce(t *testing.T) {
	host := mockhost.New("/dev/ttyUSB0", "/dev/ttyACM0", "/dev/ttyUSB0")
	reg := serialsession.NewRegistry(host)
	ctx := context.Background()

	got, err := reg.Enumerate(ctx)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(got) != 2 || got[0] != "/dev/ttyUSB0" || got[1] != "/dev/ttyACM0" {
		t.Errorf("Enumerate() = %v, want deduplicated list in host order", got)
	}

	again, err := reg.Enumerate(ctx)
	if err != nil {
		t.Fatalf("second Enumerate failed: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("second Enumerate() = %v", again)
	}
	if host.ListCalls() != 1 {
		t.Errorf("Expected host queried once, got %d", host.ListCalls())
	}
}

func TestEnumerateFailureCanRetry(t *testing.T) {
	host := mockhost.New("/dev/ttyUSB0")
	host.FailList(serialsession.ErrPermissionDenied)
	reg := serialsession.NewRegistry(host)
	ctx := context.Background()

	if _, err := reg.Enumerate(ctx); !errors.Is(err, serialsession.ErrPermissionDenied) {
		t.Fatalf("Enumerate() error = %v, want ErrPermissionDenied", err)
	}

	host.FailList(nil)
	got, err := reg.Enumerate(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Enumerate() = %v", got)
	}
}

func TestRequestAuthorization(t *testing.T) {
	host := mockhost.New("/dev/ttyUSB0")
	reg := serialsession.NewRegistry(host)
	ctx := context.Background()

	if _, err := reg.Enumerate(ctx); err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	host.Grant("/dev/ttyACM0")
	h, err := reg.RequestAuthorization(ctx, serialsession.Filter{})
	if err != nil {
		t.Fatalf("RequestAuthorization failed: %v", err)
	}
	if h != "/dev/ttyACM0" {
		t.Errorf("granted %q", h)
	}

	if sel, ok := reg.Selected(); !ok || sel != h {
		t.Errorf("Selected() = %q, %v, want granted port", sel, ok)
	}
	known := reg.Known()
	if len(known) != 2 || known[1] != "/dev/ttyACM0" {
		t.Errorf("Known() = %v, want granted port appended", known)
	}

	// Granting a known port does not duplicate it
	if _, err := reg.RequestAuthorization(ctx, serialsession.Filter{}); err != nil {
		t.Fatalf("RequestAuthorization failed: %v", err)
	}
	if len(reg.Known()) != 2 {
		t.Errorf("Known() = %v, want no duplicates", reg.Known())
	}
}

func TestRequestAuthorizationDenied(t *testing.T) {
	host := mockhost.New()
	reg := serialsession.NewRegistry(host)
	reg.Select("/dev/ttyUSB0")

	_, err := reg.RequestAuthorization(context.Background(), serialsession.Filter{})
	if !errors.Is(err, serialsession.ErrAuthorizationDenied) {
		t.Errorf("error = %v, want ErrAuthorizationDenied", err)
	}
	if sel, _ := reg.Selected(); sel != "/dev/ttyUSB0" {
		t.Errorf("denied request changed selection to %q", sel)
	}
	if len(reg.Known()) != 0 {
		t.Errorf("denied request changed known ports: %v", reg.Known())
	}
}

func TestRequestAuthorizationFilter(t *testing.T) {
	host := mockhost.New()
	host.Grant("/dev/ttyUSB0")
	host.SetInfo("/dev/ttyUSB0", serialsession.USBInfo{VendorID: 0x1a86, ProductID: 0x7523})
	reg := serialsession.NewRegistry(host)
	ctx := context.Background()

	_, err := reg.RequestAuthorization(ctx, serialsession.Filter{VendorID: 0x0403})
	if !errors.Is(err, serialsession.ErrAuthorizationDenied) {
		t.Errorf("mismatched filter error = %v, want ErrAuthorizationDenied", err)
	}

	h, err := reg.RequestAuthorization(ctx, serialsession.Filter{VendorID: 0x1a86})
	if err != nil || h != "/dev/ttyUSB0" {
		t.Errorf("RequestAuthorization() = %q, %v", h, err)
	}
}

func TestSelect(t *testing.T) {
	reg := serialsession.NewRegistry(mockhost.New())

	if _, ok := reg.Selected(); ok {
		t.Error("Expected no selection initially")
	}

	reg.Select("/dev/ttyS0")
	if h, ok := reg.Selected(); !ok || h != "/dev/ttyS0" {
		t.Errorf("Selected() = %q, %v", h, ok)
	}
}

func TestKnownIsCopy(t *testing.T) {
	reg := serialsession.NewRegistry(mockhost.New("/dev/ttyUSB0"))
	if _, err := reg.Enumerate(context.Background()); err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	known := reg.Known()
	known[0] = "mutated"
	if reg.Known()[0] != "/dev/ttyUSB0" {
		t.Error("Known() exposed internal slice")
	}
}

func TestNotify(t *testing.T) {
	reg := serialsession.NewRegistry(mockhost.New("/dev/ttyUSB0"))
	if _, err := reg.Enumerate(context.Background()); err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	reg.Select("/dev/ttyUSB0")

	var attached, detached []serialsession.Handle
	reg.OnAttach(func(h serialsession.Handle) { attached = append(attached, h) })
	reg.OnDetach(func(h serialsession.Handle) { detached = append(detached, h) })

	reg.Notify(serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: "/dev/ttyACM0"})
	reg.Notify(serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: "/dev/ttyUSB0"})

	if len(attached) != 1 || attached[0] != "/dev/ttyACM0" {
		t.Errorf("attached = %v", attached)
	}
	if len(detached) != 1 || detached[0] != "/dev/ttyUSB0" {
		t.Errorf("detached = %v", detached)
	}

	// Events never touch bookkeeping
	if known := reg.Known(); len(known) != 1 || known[0] != "/dev/ttyUSB0" {
		t.Errorf("Known() = %v after events", known)
	}
	if h, ok := reg.Selected(); !ok || h != "/dev/ttyUSB0" {
		t.Errorf("detached port should stay selected, got %q, %v", h, ok)
	}
}

func TestNotifyWithoutCallbacks(t *testing.T) {
	reg := serialsession.NewRegistry(mockhost.New())
	reg.Notify(serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: "/dev/ttyUSB0"})
	reg.Notify(serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: "/dev/ttyUSB0"})
}
