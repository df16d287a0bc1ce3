package ttydev

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	serialsession "github.com/allbin/go-serialsession"
)

// ReenumerateDelay is how long USB devices typically take to reappear after a reset.
const ReenumerateDelay = 2 * time.Second

// ResetUSB performs a USB-level reset of dev using the usbreset utility
// (usbutils). It usually needs root. It waits for the device to
// re-enumerate unless ctx ends first.
func ResetUSB(ctx context.Context, dev *Device) error {
	if dev.BusNumber == "" || dev.DeviceNumber == "" {
		return serialsession.ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return serialsession.ErrUSBResetNotAvailable
	}

	cmd := exec.CommandContext(ctx, "usbreset", USBPath(dev.BusNumber, dev.DeviceNumber))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	select {
	case <-time.After(ReenumerateDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// USBPath formats bus and device numbers as the BBB/DDD path usbreset expects.
func USBPath(bus, device string) string {
	return pad3(bus) + "/" + pad3(device)
}

func pad3(s string) string {
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
