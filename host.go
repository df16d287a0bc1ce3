package serialsession

import (
	"context"
	"fmt"
	"io"
)

// Handle identifies one serial endpoint as issued by a Host. The bundled
// backends use the device path.
type Handle string

// Stream is an open duplex connection to a device. Read returns io.EOF once
// the device is gone or closed. A Read returning (0, nil) is an idle poll and
// is not delivered to consumers.
type Stream interface {
	io.ReadWriteCloser

	Signals() (InputSignals, error)
	SetSignals(OutputSignals) error
}

// Host is the capability interface to the platform's serial transport.
// Real hardware, mocks and emulators are interchangeable behind it.
type Host interface {
	// ListAuthorized returns the ports this process may open.
	ListAuthorized(ctx context.Context) ([]Handle, error)
	// RequestPort grants access to a new port matching filter.
	RequestPort(ctx context.Context, filter Filter) (Handle, error)
	Open(ctx context.Context, h Handle, cfg Config) (Stream, error)
	Info(ctx context.Context, h Handle) (USBInfo, error)
}

// EventSource delivers device attach/detach notifications. The channel is
// closed when ctx is done.
type EventSource interface {
	Watch(ctx context.Context) (<-chan DeviceEvent, error)
}

// Filter narrows RequestPort to matching devices. Zero fields match anything.
type Filter struct {
	VendorID  uint16
	ProductID uint16
	Path      string
}

// Matches reports whether a device with the given identity passes the filter.
func (f Filter) Matches(h Handle, info USBInfo) bool {
	if f.Path != "" && string(h) != f.Path {
		return false
	}
	if f.VendorID != 0 && f.VendorID != info.VendorID {
		return false
	}
	if f.ProductID != 0 && f.ProductID != info.ProductID {
		return false
	}
	return true
}

// USBInfo is the raw identity a Host reports for a device.
type USBInfo struct {
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Manufacturer string
	Product      string
}

// PortInfo describes a port for presentation.
type PortInfo struct {
	Handle       Handle
	VendorID     uint16
	ProductID    uint16
	USBID        string // "vvvv:pppp", lowercase hex
	SerialNumber string
	Manufacturer string
	Product      string
}

// FormatUSBID renders ids as lowercase, zero padded "vvvv:pppp".
func FormatUSBID(vendorID, productID uint16) string {
	return fmt.Sprintf("%04x:%04x", vendorID, productID)
}

func newPortInfo(h Handle, info USBInfo) PortInfo {
	return PortInfo{
		Handle:       h,
		VendorID:     info.VendorID,
		ProductID:    info.ProductID,
		USBID:        FormatUSBID(info.VendorID, info.ProductID),
		SerialNumber: info.SerialNumber,
		Manufacturer: info.Manufacturer,
		Product:      info.Product,
	}
}

// EventKind distinguishes attach from detach.
type EventKind int

const (
	DeviceAttached EventKind = iota + 1
	DeviceDetached
)

func (k EventKind) String() string {
	switch k {
	case DeviceAttached:
		return "attached"
	case DeviceDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// DeviceEvent reports a device appearing or disappearing.
type DeviceEvent struct {
	Kind   EventKind
	Handle Handle
}
