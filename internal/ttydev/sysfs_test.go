package ttydev

import (
	"os"
	"path/filepath"
	"testing"
)

// TestReadSysfsFile tests the sysfs file reading helper
func TestReadSysfsFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		expected string
		setup    func(string) error
	}{
		{
			name:     "normal file",
			expected: "1234",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("1234\n"), 0644)
			},
		},
		{
			name:     "file with spaces",
			expected: "test value",
			setup: func(path string) error {
				return os.WriteFile(path, []byte("  test value  \n"), 0644)
			},
		},
		{
			name:     "nonexistent file",
			expected: "",
			setup:    func(path string) error { return nil },
		},
		{
			name:     "empty file",
			expected: "",
			setup: func(path string) error {
				return os.WriteFile(path, []byte(""), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, tt.name)
			if err := tt.setup(testFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			result := readSysfsFile(testFile)
			if result != tt.expected {
				t.Errorf("readSysfsFile() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

// buildUSBSysfs creates a sysfs tree for ttyUSB0 under root:
// root/class/tty/ttyUSB0/device -> root/devices/usb5/5-2.3.1/5-2.3.1:1.0/ttyUSB0
func buildUSBSysfs(t *testing.T, root string) {
	t.Helper()

	devicePath := filepath.Join(root, "devices", "usb5", "5-2.3.1")
	interfacePath := filepath.Join(devicePath, "5-2.3.1:1.0")
	ttyPath := filepath.Join(interfacePath, "ttyUSB0")
	classTtyPath := filepath.Join(root, "class", "tty", "ttyUSB0")

	if err := os.MkdirAll(ttyPath, 0755); err != nil {
		t.Fatalf("Failed to create directory structure: %v", err)
	}
	if err := os.MkdirAll(classTtyPath, 0755); err != nil {
		t.Fatalf("Failed to create class/tty directory: %v", err)
	}

	deviceFiles := map[string]string{
		"idVendor":     "0403",
		"idProduct":    "6010",
		"serial":       "FT123456",
		"manufacturer": "FTDI",
		"product":      "FT2232C Dual USB-UART",
		"busnum":       "5",
		"devnum":       "7",
	}
	for filename, content := range deviceFiles {
		path := filepath.Join(devicePath, filename)
		if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", filename, err)
		}
	}

	if err := os.WriteFile(filepath.Join(interfacePath, "bInterfaceNumber"), []byte("00\n"), 0644); err != nil {
		t.Fatalf("Failed to write interface number: %v", err)
	}

	if err := os.Symlink(ttyPath, filepath.Join(classTtyPath, "device")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
}

// TestReadUSBInfo tests USB metadata extraction with a mock sysfs structure
func TestReadUSBInfo(t *testing.T) {
	root := t.TempDir()
	buildUSBSysfs(t, root)

	dev := &Device{Name: "ttyUSB0", Path: "/dev/ttyUSB0"}
	Scanner{DevDir: "/dev", SysRoot: root}.readUSBInfo(dev)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"VendorID", dev.VendorID, "0403"},
		{"ProductID", dev.ProductID, "6010"},
		{"SerialNumber", dev.SerialNumber, "FT123456"},
		{"InterfaceNumber", dev.InterfaceNumber, "00"},
		{"BusNumber", dev.BusNumber, "5"},
		{"DeviceNumber", dev.DeviceNumber, "7"},
		{"Manufacturer", dev.Manufacturer, "FTDI"},
		{"Product", dev.Product, "FT2232C Dual USB-UART"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
		}
	}
	if !dev.IsUSB() {
		t.Error("Expected IsUSB() after reading sysfs")
	}
}

// TestReadUSBInfoACM covers CDC/ACM devices whose device link points at the interface
func TestReadUSBInfoACM(t *testing.T) {
	root := t.TempDir()

	devicePath := filepath.Join(root, "devices", "usb1", "1-1")
	interfacePath := filepath.Join(devicePath, "1-1:1.0")
	classTtyPath := filepath.Join(root, "class", "tty", "ttyACM0")
	for _, dir := range []string{interfacePath, classTtyPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(devicePath, "idVendor"), []byte("2341\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(devicePath, "idProduct"), []byte("0043\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(interfacePath, filepath.Join(classTtyPath, "device")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	dev := &Device{Name: "ttyACM0"}
	Scanner{SysRoot: root}.readUSBInfo(dev)

	if dev.VendorID != "2341" || dev.ProductID != "0043" {
		t.Errorf("ids = %q:%q, want 2341:0043", dev.VendorID, dev.ProductID)
	}
}

// TestReadUSBInfoGracefulFailure tests that missing sysfs entries leave fields empty
func TestReadUSBInfoGracefulFailure(t *testing.T) {
	dev := &Device{Name: "ttyUSB999", Path: "/dev/ttyUSB999"}

	Scanner{SysRoot: t.TempDir()}.readUSBInfo(dev)

	if dev.VendorID != "" {
		t.Errorf("VendorID should be empty, got %q", dev.VendorID)
	}
	if dev.ProductID != "" {
		t.Errorf("ProductID should be empty, got %q", dev.ProductID)
	}
	if dev.SerialNumber != "" {
		t.Errorf("SerialNumber should be empty, got %q", dev.SerialNumber)
	}
}
