//go:build linux

package termios

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	serialsession "github.com/allbin/go-serialsession"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		rate   int
		want   uint32
		wantOK bool
	}{
		{9600, unix.B9600, true},
		{115200, unix.B115200, true},
		{921600, unix.B921600, true},
		{14400, 0, false},
		{31250, 0, false},
		{12345, 0, false},
	}

	for _, tt := range tests {
		got, ok := getBaudRate(tt.rate)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("getBaudRate(%d) = %#x, %v, want %#x, %v", tt.rate, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestApplyConfig(t *testing.T) {
	tests := []struct {
		name   string
		opts   []serialsession.Option
		set    uint32
		unset  uint32
		vtime  uint8
		ispeed uint32
	}{
		{
			name:   "default 8N1",
			set:    unix.CS8 | unix.CREAD | unix.CLOCAL | unix.B115200,
			unset:  unix.PARENB | unix.CSTOPB | unix.CRTSCTS,
			vtime:  1,
			ispeed: 115200,
		},
		{
			name:   "7E2",
			opts:   []serialsession.Option{serialsession.WithDataBits(7), serialsession.WithParity(serialsession.ParityEven), serialsession.WithStopBits(2)},
			set:    unix.CS7 | unix.PARENB | unix.CSTOPB,
			unset:  unix.PARODD,
			vtime:  1,
			ispeed: 115200,
		},
		{
			name:   "odd parity",
			opts:   []serialsession.Option{serialsession.WithParity(serialsession.ParityOdd)},
			set:    unix.PARENB | unix.PARODD,
			vtime:  1,
			ispeed: 115200,
		},
		{
			name:   "hardware flow control",
			opts:   []serialsession.Option{serialsession.WithFlowControl(serialsession.FlowControlHardware)},
			set:    unix.CRTSCTS,
			vtime:  1,
			ispeed: 115200,
		},
		{
			name:   "non-standard rate",
			opts:   []serialsession.Option{serialsession.WithBaudRate(31250)},
			set:    unix.BOTHER,
			vtime:  1,
			ispeed: 31250,
		},
		{
			name:   "read timeout",
			opts:   []serialsession.Option{serialsession.WithReadTimeout(500 * time.Millisecond)},
			vtime:  5,
			ispeed: 115200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := serialsession.DefaultConfig()
			for _, opt := range tt.opts {
				if err := opt(&cfg); err != nil {
					t.Fatalf("option failed: %v", err)
				}
			}

			// Start from a dirty termios to check raw mode is forced
			term := &unix.Termios{Iflag: unix.ICRNL, Oflag: unix.OPOST, Lflag: unix.ICANON | unix.ECHO}
			if err := applyConfig(term, cfg); err != nil {
				t.Fatalf("applyConfig failed: %v", err)
			}

			if term.Cflag&tt.set != tt.set {
				t.Errorf("Cflag %#x missing bits %#x", term.Cflag, tt.set)
			}
			if term.Cflag&tt.unset != 0 {
				t.Errorf("Cflag %#x has unexpected bits %#x", term.Cflag, term.Cflag&tt.unset)
			}
			if term.Iflag != 0 || term.Oflag != 0 || term.Lflag != 0 {
				t.Errorf("raw mode not applied: iflag=%#x oflag=%#x lflag=%#x", term.Iflag, term.Oflag, term.Lflag)
			}
			if term.Cc[unix.VMIN] != 0 {
				t.Errorf("VMIN = %d, want 0", term.Cc[unix.VMIN])
			}
			if term.Cc[unix.VTIME] != tt.vtime {
				t.Errorf("VTIME = %d, want %d", term.Cc[unix.VTIME], tt.vtime)
			}
			if term.Ispeed != tt.ispeed || term.Ospeed != tt.ispeed {
				t.Errorf("speed = %d/%d, want %d", term.Ispeed, term.Ospeed, tt.ispeed)
			}
		})
	}
}

func TestApplyConfigInvalid(t *testing.T) {
	cfg := serialsession.DefaultConfig()
	cfg.DataBits = 5
	if err := applyConfig(&unix.Termios{}, cfg); !errors.Is(err, serialsession.ErrInvalidConfig) {
		t.Errorf("applyConfig(5 data bits) error = %v, want ErrInvalidConfig", err)
	}

	cfg = serialsession.DefaultConfig()
	cfg.BaudRate = 0
	if err := applyConfig(&unix.Termios{}, cfg); !errors.Is(err, serialsession.ErrInvalidBaudRate) {
		t.Errorf("applyConfig(0 baud) error = %v, want ErrInvalidBaudRate", err)
	}
}

// TestInputsFromTIOCM tests modem status decoding
func TestInputsFromTIOCM(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   serialsession.InputSignals
	}{
		{"none", 0, serialsession.InputSignals{}},
		{"CTS only", unix.TIOCM_CTS, serialsession.InputSignals{ClearToSend: true}},
		{"DSR only", unix.TIOCM_DSR, serialsession.InputSignals{DataSetReady: true}},
		{"RI only", unix.TIOCM_RI, serialsession.InputSignals{RingIndicator: true}},
		{"DCD only", unix.TIOCM_CAR, serialsession.InputSignals{DataCarrierDetect: true}},
		{"outputs ignored", unix.TIOCM_RTS | unix.TIOCM_DTR, serialsession.InputSignals{}},
		{
			"all inputs",
			unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR,
			serialsession.InputSignals{ClearToSend: true, DataSetReady: true, RingIndicator: true, DataCarrierDetect: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inputsFromTIOCM(tt.status); got != tt.want {
				t.Errorf("inputsFromTIOCM(%#x) = %+v, want %+v", tt.status, got, tt.want)
			}
		})
	}
}

func TestOutputBits(t *testing.T) {
	tests := []struct {
		name    string
		out     serialsession.OutputSignals
		wantOn  int
		wantOff int
	}{
		{"both low", serialsession.OutputSignals{}, 0, unix.TIOCM_DTR | unix.TIOCM_RTS},
		{"DTR high", serialsession.OutputSignals{DataTerminalReady: true}, unix.TIOCM_DTR, unix.TIOCM_RTS},
		{"RTS high", serialsession.OutputSignals{RequestToSend: true}, unix.TIOCM_RTS, unix.TIOCM_DTR},
		{"both high with break", serialsession.OutputSignals{DataTerminalReady: true, RequestToSend: true, Break: true}, unix.TIOCM_DTR | unix.TIOCM_RTS, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			on, off := outputBits(tt.out)
			if on != tt.wantOn || off != tt.wantOff {
				t.Errorf("outputBits(%+v) = %#x, %#x, want %#x, %#x", tt.out, on, off, tt.wantOn, tt.wantOff)
			}
		})
	}
}

func TestMapErrno(t *testing.T) {
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, serialsession.ErrDeviceNotFound},
		{unix.ENXIO, serialsession.ErrDeviceNotFound},
		{unix.EACCES, serialsession.ErrPermissionDenied},
		{unix.EPERM, serialsession.ErrPermissionDenied},
		{unix.EBUSY, serialsession.ErrDeviceBusy},
	}

	for _, tt := range tests {
		if err := mapErrno(tt.errno); !errors.Is(err, tt.want) {
			t.Errorf("mapErrno(%v) = %v, want %v", tt.errno, err, tt.want)
		}
	}

	if err := mapErrno(unix.EINVAL); !errors.Is(err, unix.EINVAL) {
		t.Errorf("mapErrno(EINVAL) = %v, want EINVAL passed through", err)
	}
	if mapErrno(nil) != nil {
		t.Error("mapErrno(nil) should be nil")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	h := New()
	_, err := h.Open(context.Background(), "/dev/ttyUSB_does_not_exist", serialsession.DefaultConfig())
	if !errors.Is(err, serialsession.ErrDeviceNotFound) {
		t.Errorf("Open() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestOpenNotATTY(t *testing.T) {
	h := New()
	// /dev/null opens but rejects tty ioctls
	_, err := h.Open(context.Background(), "/dev/null", serialsession.DefaultConfig())
	if err == nil {
		t.Error("Expected error opening /dev/null as a serial port")
	}
}

func TestRequestPortNoMatch(t *testing.T) {
	h := New()
	_, err := h.RequestPort(context.Background(), serialsession.Filter{Path: "/dev/ttyUSB_does_not_exist"})
	if !errors.Is(err, serialsession.ErrAuthorizationDenied) {
		t.Errorf("RequestPort() error = %v, want ErrAuthorizationDenied", err)
	}
}

func TestInfoNonUSB(t *testing.T) {
	h := New()
	_, err := h.Info(context.Background(), "/dev/null")
	if !errors.Is(err, serialsession.ErrUSBInfoNotAvailable) {
		t.Errorf("Info(/dev/null) error = %v, want ErrUSBInfoNotAvailable", err)
	}
}

func TestListAuthorized(t *testing.T) {
	handles, err := New().ListAuthorized(context.Background())
	if err != nil {
		t.Fatalf("ListAuthorized failed: %v", err)
	}
	for _, h := range handles {
		if !accessible(string(h)) {
			t.Errorf("listed inaccessible port %s", h)
		}
	}
}

// openPTY returns the master fd and slave path of a fresh pseudo terminal.
func openPTY(t *testing.T) (int, string) {
	t.Helper()
	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("no pseudo terminal available: %v", err)
	}
	t.Cleanup(func() { unix.Close(master) })

	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		t.Fatalf("unlockpt failed: %v", err)
	}
	n, err := unix.IoctlGetUint32(master, unix.TIOCGPTN)
	if err != nil {
		t.Fatalf("ptsname failed: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestIdleReadDoesNotBlockWrites(t *testing.T) {
	_, slave := openPTY(t)

	cfg := serialsession.DefaultConfig()
	cfg.ReadTimeout = 2 * time.Second
	p, err := openPort(slave, cfg)
	if err != nil {
		t.Fatalf("openPort failed: %v", err)
	}
	defer p.Close()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, 16)
		_, _ = p.Read(buf)
	}()
	// Let the read settle into its VTIME wait.
	time.Sleep(50 * time.Millisecond)

	// Pseudo terminals reject modem line ioctls; only the locking matters.
	_ = p.SetSignals(serialsession.OutputSignals{DataTerminalReady: true})

	start := time.Now()
	if _, err := p.Write([]byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Write took %v while a read was idle", elapsed)
	}

	start = time.Now()
	_, _ = p.Signals()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Signals took %v while a read was idle", elapsed)
	}
	<-readDone
}
