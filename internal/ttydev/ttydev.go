// Package ttydev discovers serial tty devices under /dev and reads their
// USB metadata from sysfs.
package ttydev

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	serialsession "github.com/allbin/go-serialsession"
)

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// Exclude patterns for virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),  // Virtual terminals (tty1, tty2, etc.)
	regexp.MustCompile(`^console$`), // Console
	regexp.MustCompile(`^ptmx$`),    // Pseudo-terminal multiplexer
	regexp.MustCompile(`^pty.*$`),   // Pseudo-terminals
	regexp.MustCompile(`^pts/.*$`),  // Pseudo-terminal slaves
}

// Device describes one tty device. USB fields are empty for on-board UARTs.
type Device struct {
	Name            string
	Path            string
	Description     string
	VendorID        string // hex, as in sysfs idVendor
	ProductID       string // hex, as in sysfs idProduct
	SerialNumber    string
	Manufacturer    string
	Product         string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
}

// IsUSB reports whether USB identity was found.
func (d *Device) IsUSB() bool {
	return d.VendorID != "" && d.ProductID != ""
}

// USBInfo converts the sysfs strings to numeric ids.
func (d *Device) USBInfo() (serialsession.USBInfo, error) {
	if !d.IsUSB() {
		return serialsession.USBInfo{}, serialsession.ErrUSBInfoNotAvailable
	}
	vid, err := ParseUSBID(d.VendorID)
	if err != nil {
		return serialsession.USBInfo{}, err
	}
	pid, err := ParseUSBID(d.ProductID)
	if err != nil {
		return serialsession.USBInfo{}, err
	}
	return serialsession.USBInfo{
		VendorID:     vid,
		ProductID:    pid,
		SerialNumber: d.SerialNumber,
		Manufacturer: d.Manufacturer,
		Product:      d.Product,
	}, nil
}

// ParseUSBID parses a 4 digit hex USB vendor or product id.
func ParseUSBID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x"), 16, 16)
	if err != nil {
		return 0, serialsession.ErrUSBInfoNotAvailable
	}
	return uint16(v), nil
}

// Scanner reads devices from a /dev directory and a sysfs root. The zero
// value is not usable; use Default or set both paths.
type Scanner struct {
	DevDir  string
	SysRoot string
}

// Default scans the live system.
var Default = Scanner{DevDir: "/dev", SysRoot: "/sys"}

// IsSerialName reports whether a /dev entry name looks like a serial port
func IsSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range serialPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// List returns the serial character devices in DevDir, sorted by path.
func (s Scanner) List() ([]string, error) {
	entries, err := os.ReadDir(s.DevDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !IsSerialName(name) {
			continue
		}

		fullPath := filepath.Join(s.DevDir, name)

		// Verify it's a character device (not a directory or regular file)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	// Sort the ports for consistent ordering
	sort.Strings(ports)

	return ports, nil
}

// Describe returns detailed information about the device at path.
func (s Scanner) Describe(path string) (*Device, error) {
	if !isCharacterDevice(path) {
		return nil, serialsession.ErrDeviceNotFound
	}

	name := filepath.Base(path)
	dev := &Device{
		Name:        name,
		Path:        path,
		Description: describeName(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		s.readUSBInfo(dev)
	}
	return dev, nil
}

// FindBySerial returns the first listed device whose USB serial matches.
func (s Scanner) FindBySerial(serialNumber string) (*Device, error) {
	ports, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, p := range ports {
		dev, err := s.Describe(p)
		if err != nil {
			continue
		}
		if dev.SerialNumber == serialNumber {
			return dev, nil
		}
	}
	return nil, serialsession.ErrDeviceNotFound
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// describeName provides human-readable descriptions for different port types
func describeName(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
