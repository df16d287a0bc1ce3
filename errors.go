package serialsession

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	// Session state errors
	ErrNoPortSelected = errors.New("no serial port selected")
	ErrAlreadyOpen    = errors.New("serial port already open")
	ErrNotOpen        = errors.New("serial port is not open")
	ErrReadLocked     = errors.New("serial port is locked for reading")

	// Authorization and device errors
	ErrAuthorizationDenied = errors.New("serial port authorization denied")
	ErrDevice              = errors.New("serial device error")
	ErrDeviceNotFound      = errors.New("serial device not found")
	ErrDeviceBusy          = errors.New("serial device already in use")
	ErrPermissionDenied    = errors.New("permission denied accessing serial device")

	// Configuration errors
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// DeviceError wraps a failure reported by the host transport.
// errors.Is(err, ErrDevice) matches every DeviceError.
type DeviceError struct {
	Op     string
	Handle Handle
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Handle == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is reports ErrDevice as a match so callers can test for any transport failure.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

func deviceError(op string, h Handle, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &DeviceError{Op: op, Handle: h, Err: err}
}
