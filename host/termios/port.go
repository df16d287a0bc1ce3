//go:build linux

package termios

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"

	serialsession "github.com/allbin/go-serialsession"
)

// port is an open tty implementing serialsession.Stream. Read, Write and
// the signal calls share mu for reading so an idle VTIME read never holds
// up the other direction; only Close takes it exclusively.
type port struct {
	mu     sync.RWMutex
	fd     int
	closed bool

	breakMu sync.Mutex
	breakOn bool
}

var _ serialsession.Stream = (*port)(nil)

// openPort opens device for exclusive use and applies cfg
func openPort(device string, cfg serialsession.Config) (*port, error) {
	// O_NONBLOCK keeps open from waiting on carrier detect; cleared below.
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapErrno(err)
	}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, mapErrno(err)
	}

	if err := configurePort(fd, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to clear O_NONBLOCK: %w", err)
	}

	return &port{fd: fd}, nil
}

// Read reads data from the serial port. A read that times out returns
// (0, nil); a hung up device returns io.EOF.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, io.EOF
	}

	n, err := unix.Read(p.fd, buf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return 0, nil
	case err != nil:
		return 0, err
	case n > 0:
		return n, nil
	}

	// Zero bytes is either VTIME expiring or a hangup. A gone device
	// also fails the modem status ioctl.
	if _, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET); isHangup(err) {
		return 0, io.EOF
	}
	return 0, nil
}

// Write writes data to the serial port
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, serialsession.ErrNotOpen
	}

	for {
		n, err := unix.Write(p.fd, data)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Close drains pending output and closes the port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	// Best effort; a detached device cannot drain.
	_ = unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)

	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// Signals returns the current modem input lines
func (p *port) Signals() (serialsession.InputSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return serialsession.InputSignals{}, serialsession.ErrNotOpen
	}

	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return serialsession.InputSignals{}, err
	}
	return inputsFromTIOCM(status), nil
}

// SetSignals drives DTR, RTS and the break condition
func (p *port) SetSignals(out serialsession.OutputSignals) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.breakMu.Lock()
	defer p.breakMu.Unlock()

	if p.closed {
		return serialsession.ErrNotOpen
	}

	on, off := outputBits(out)
	if on != 0 {
		if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCMBIS, on); err != nil {
			return fmt.Errorf("failed to assert modem lines: %w", err)
		}
	}
	if off != 0 {
		if err := unix.IoctlSetPointerInt(p.fd, unix.TIOCMBIC, off); err != nil {
			return fmt.Errorf("failed to clear modem lines: %w", err)
		}
	}

	if out.Break != p.breakOn {
		req := uint(unix.TIOCCBRK)
		if out.Break {
			req = unix.TIOCSBRK
		}
		if err := unix.IoctlSetInt(p.fd, req, 0); err != nil {
			return fmt.Errorf("failed to set break: %w", err)
		}
		p.breakOn = out.Break
	}
	return nil
}

func isHangup(err error) bool {
	return errors.Is(err, unix.EIO) || errors.Is(err, unix.ENODEV) || errors.Is(err, unix.ENXIO)
}

// mapErrno translates open failures to the library's sentinel errors
func mapErrno(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %v", serialsession.ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", serialsession.ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %v", serialsession.ErrDeviceBusy, err)
	default:
		return err
	}
}
