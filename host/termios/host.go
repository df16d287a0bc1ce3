//go:build linux

// Package termios is the Linux serial backend: it opens tty devices
// directly and programs them with termios and modem control ioctls.
package termios

import (
	"context"
	"log/slog"

	"golang.org/x/sys/unix"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/devwatch"
	"github.com/allbin/go-serialsession/internal/ttydev"
)

// Host implements serialsession.Host and serialsession.EventSource for
// local tty devices. A port counts as authorized when the process can open
// it for reading and writing.
type Host struct {
	scanner ttydev.Scanner
	logger  *slog.Logger
}

var (
	_ serialsession.Host        = (*Host)(nil)
	_ serialsession.EventSource = (*Host)(nil)
)

// Option configures a Host
type Option func(*Host)

// WithLogger sets the logger used for watch errors
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithScanner overrides the /dev and /sys roots
func WithScanner(s ttydev.Scanner) Option {
	return func(h *Host) {
		h.scanner = s
	}
}

// New returns a host scanning the live system
func New(opts ...Option) *Host {
	h := &Host{
		scanner: ttydev.Default,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListAuthorized returns the serial devices this process may open
func (h *Host) ListAuthorized(ctx context.Context) ([]serialsession.Handle, error) {
	ports, err := h.scanner.List()
	if err != nil {
		return nil, err
	}

	var handles []serialsession.Handle
	for _, p := range ports {
		if accessible(p) {
			handles = append(handles, serialsession.Handle(p))
		}
	}
	return handles, nil
}

// RequestPort returns the first accessible device passing filter. There is
// no interactive chooser on Linux, so a filter matching nothing is a denial.
func (h *Host) RequestPort(ctx context.Context, filter serialsession.Filter) (serialsession.Handle, error) {
	ports, err := h.scanner.List()
	if err != nil {
		return "", err
	}

	for _, p := range ports {
		handle := serialsession.Handle(p)
		var info serialsession.USBInfo
		if dev, err := h.scanner.Describe(p); err == nil {
			info, _ = dev.USBInfo()
		}
		if filter.Matches(handle, info) && accessible(p) {
			return handle, nil
		}
	}
	return "", serialsession.ErrAuthorizationDenied
}

// Open implements serialsession.Host
func (h *Host) Open(ctx context.Context, handle serialsession.Handle, cfg serialsession.Config) (serialsession.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return openPort(string(handle), cfg)
}

// Info reads USB identity from sysfs
func (h *Host) Info(ctx context.Context, handle serialsession.Handle) (serialsession.USBInfo, error) {
	dev, err := h.scanner.Describe(string(handle))
	if err != nil {
		return serialsession.USBInfo{}, err
	}
	return dev.USBInfo()
}

// Watch reports serial nodes appearing and disappearing in /dev
func (h *Host) Watch(ctx context.Context) (<-chan serialsession.DeviceEvent, error) {
	return devwatch.New(h.scanner.DevDir, h.logger).Watch(ctx)
}

func accessible(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
