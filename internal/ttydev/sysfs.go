package ttydev

import (
	"os"
	"path/filepath"
	"strings"
)

// readUSBInfo fills USB metadata by following
// <sys>/class/tty/<name>/device to the interface directory and reading the
// attribute files of its parent USB device. Missing files leave fields empty.
func (s Scanner) readUSBInfo(dev *Device) {
	link := filepath.Join(s.SysRoot, "class", "tty", dev.Name, "device")
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return
	}

	// ttyUSB devices resolve to <usbdev>/<intf>/ttyUSBn, ttyACM devices
	// resolve to the interface directory itself.
	interfacePath := resolved
	if filepath.Base(resolved) == dev.Name {
		interfacePath = filepath.Dir(resolved)
	}
	dev.InterfaceNumber = readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber"))

	usbDevicePath := filepath.Dir(interfacePath)
	dev.VendorID = readSysfsFile(filepath.Join(usbDevicePath, "idVendor"))
	dev.ProductID = readSysfsFile(filepath.Join(usbDevicePath, "idProduct"))
	dev.SerialNumber = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	dev.Manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	dev.Product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	dev.BusNumber = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	dev.DeviceNumber = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or "".
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
