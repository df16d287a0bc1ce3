// Package bugst is a cross-platform serial backend built on go.bug.st/serial.
// It covers Linux, macOS and Windows but cannot do hardware flow control.
package bugst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	serialsession "github.com/allbin/go-serialsession"
)

const (
	// DefaultBreakDuration is the length of the break pulse sent when the
	// break output is raised.
	DefaultBreakDuration = 100 * time.Millisecond
	// DefaultScanInterval is how often Watch rescans the port list.
	DefaultScanInterval = time.Second
)

// Host implements serialsession.Host and serialsession.EventSource.
type Host struct {
	logger        *slog.Logger
	clock         clock.Clock
	breakDuration time.Duration
	scanInterval  time.Duration

	list func() ([]*enumerator.PortDetails, error)
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

var (
	_ serialsession.Host        = (*Host)(nil)
	_ serialsession.EventSource = (*Host)(nil)
)

// Option configures a Host
type Option func(*Host)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithClock replaces the clock driving Watch rescans
func WithClock(clk clock.Clock) Option {
	return func(h *Host) {
		h.clock = clk
	}
}

// WithBreakDuration sets the break pulse length
func WithBreakDuration(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.breakDuration = d
		}
	}
}

// WithScanInterval sets the Watch rescan period
func WithScanInterval(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.scanInterval = d
		}
	}
}

// New returns a host backed by the operating system's serial ports.
func New(opts ...Option) *Host {
	h := &Host{
		logger:        slog.New(slog.DiscardHandler),
		clock:         clock.New(),
		breakDuration: DefaultBreakDuration,
		scanInterval:  DefaultScanInterval,
		list:          enumerator.GetDetailedPortsList,
		open:          serial.Open,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListAuthorized returns every port the enumerator reports.
func (h *Host) ListAuthorized(ctx context.Context) ([]serialsession.Handle, error) {
	ports, err := h.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	handles := make([]serialsession.Handle, 0, len(ports))
	for _, p := range ports {
		handles = append(handles, serialsession.Handle(p.Name))
	}
	return handles, nil
}

// RequestPort returns the first enumerated port passing filter.
func (h *Host) RequestPort(ctx context.Context, filter serialsession.Filter) (serialsession.Handle, error) {
	ports, err := h.list()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	for _, p := range ports {
		info, _ := usbInfo(p)
		if filter.Matches(serialsession.Handle(p.Name), info) {
			return serialsession.Handle(p.Name), nil
		}
	}
	return "", serialsession.ErrAuthorizationDenied
}

// Open implements serialsession.Host
func (h *Host) Open(ctx context.Context, handle serialsession.Handle, cfg serialsession.Config) (serialsession.Stream, error) {
	mode, err := convertMode(cfg)
	if err != nil {
		return nil, err
	}

	port, err := h.open(string(handle), mode)
	if err != nil {
		return nil, mapError(err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &stream{port: port, breakDuration: h.breakDuration}, nil
}

// Info looks handle up in the enumerator's detailed list.
func (h *Host) Info(ctx context.Context, handle serialsession.Handle) (serialsession.USBInfo, error) {
	ports, err := h.list()
	if err != nil {
		return serialsession.USBInfo{}, fmt.Errorf("failed to list serial ports: %w", err)
	}
	for _, p := range ports {
		if p.Name == string(handle) {
			return usbInfo(p)
		}
	}
	return serialsession.USBInfo{}, serialsession.ErrDeviceNotFound
}

func usbInfo(p *enumerator.PortDetails) (serialsession.USBInfo, error) {
	if !p.IsUSB {
		return serialsession.USBInfo{}, serialsession.ErrUSBInfoNotAvailable
	}
	vid, err := parseHexID(p.VID)
	if err != nil {
		return serialsession.USBInfo{}, err
	}
	pid, err := parseHexID(p.PID)
	if err != nil {
		return serialsession.USBInfo{}, err
	}
	return serialsession.USBInfo{
		VendorID:     vid,
		ProductID:    pid,
		SerialNumber: p.SerialNumber,
		Product:      p.Product,
	}, nil
}

func parseHexID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: bad usb id %q", serialsession.ErrUSBInfoNotAvailable, s)
	}
	return uint16(v), nil
}

// convertMode maps a Config onto a serial.Mode
func convertMode(cfg serialsession.Config) (*serial.Mode, error) {
	if cfg.FlowControl == serialsession.FlowControlHardware {
		return nil, fmt.Errorf("%w: hardware flow control not supported by this backend", serialsession.ErrInvalidConfig)
	}
	return &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: convertStopBits(cfg.StopBits),
		Parity:   convertParity(cfg.Parity),
	}, nil
}

func convertStopBits(bits int) serial.StopBits {
	switch bits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity serialsession.Parity) serial.Parity {
	switch parity {
	case serialsession.ParityOdd:
		return serial.OddParity
	case serialsession.ParityEven:
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

// mapError translates go.bug.st/serial port errors to sentinel errors
func mapError(err error) error {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return err
	}
	switch pe.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", serialsession.ErrDeviceNotFound, err)
	case serial.PortBusy:
		return fmt.Errorf("%w: %v", serialsession.ErrDeviceBusy, err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", serialsession.ErrPermissionDenied, err)
	case serial.InvalidSpeed:
		return fmt.Errorf("%w: %v", serialsession.ErrInvalidBaudRate, err)
	case serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
		return fmt.Errorf("%w: %v", serialsession.ErrInvalidConfig, err)
	default:
		return err
	}
}
