//go:build linux

package termios

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	serialsession "github.com/allbin/go-serialsession"
)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, bool) {
	switch rate {
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 500000:
		return unix.B500000, true
	case 576000:
		return unix.B576000, true
	case 921600:
		return unix.B921600, true
	case 1000000:
		return unix.B1000000, true
	case 1500000:
		return unix.B1500000, true
	case 2000000:
		return unix.B2000000, true
	default:
		return 0, false
	}
}

// applyConfig rewrites t for raw mode with the given line settings. Rates
// without a Bxxx constant (14400, 31250, 56000, 76800) use BOTHER, which
// needs the TCSETS2 ioctl.
func applyConfig(t *unix.Termios, cfg serialsession.Config) error {
	if cfg.BaudRate <= 0 {
		return serialsession.ErrInvalidBaudRate
	}

	// Raw mode, no input/output/line processing
	t.Cflag = unix.CREAD | unix.CLOCAL
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0

	// Timeout: VMIN=0, VTIME in deciseconds. An idle read returns 0 bytes.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = uint8(cfg.ReadTimeout / (100 * time.Millisecond))

	if speed, ok := getBaudRate(cfg.BaudRate); ok {
		t.Cflag |= speed
	} else {
		t.Cflag |= unix.BOTHER
	}
	t.Ispeed = uint32(cfg.BaudRate)
	t.Ospeed = uint32(cfg.BaudRate)

	// Data bits
	switch cfg.DataBits {
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		return fmt.Errorf("%w: data bits %d", serialsession.ErrInvalidConfig, cfg.DataBits)
	}

	// Stop bits
	if cfg.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}

	// Parity
	switch cfg.Parity {
	case serialsession.ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case serialsession.ParityEven:
		t.Cflag |= unix.PARENB
	}

	// Flow control
	if cfg.FlowControl == serialsession.FlowControlHardware {
		t.Cflag |= unix.CRTSCTS
	}

	return nil
}

// configurePort programs the line settings on fd
func configurePort(fd int, cfg serialsession.Config) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS2)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	if err := applyConfig(t, cfg); err != nil {
		return err
	}

	// Apply settings immediately
	if err := unix.IoctlSetTermios(fd, unix.TCSETS2, t); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// inputsFromTIOCM decodes a TIOCMGET status word
func inputsFromTIOCM(status int) serialsession.InputSignals {
	return serialsession.InputSignals{
		ClearToSend:       status&unix.TIOCM_CTS != 0,
		DataSetReady:      status&unix.TIOCM_DSR != 0,
		RingIndicator:     status&unix.TIOCM_RI != 0,
		DataCarrierDetect: status&unix.TIOCM_CAR != 0,
	}
}

// outputBits splits the requested DTR/RTS states into TIOCMBIS and TIOCMBIC masks
func outputBits(out serialsession.OutputSignals) (on, off int) {
	if out.DataTerminalReady {
		on |= unix.TIOCM_DTR
	} else {
		off |= unix.TIOCM_DTR
	}
	if out.RequestToSend {
		on |= unix.TIOCM_RTS
	} else {
		off |= unix.TIOCM_RTS
	}
	return on, off
}
