package bugst

import (
	"errors"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	serialsession "github.com/allbin/go-serialsession"
)

// stream adapts a serial.Port to serialsession.Stream
type stream struct {
	port          serial.Port
	breakDuration time.Duration

	mu      sync.Mutex
	breakOn bool
}

// Read returns (0, nil) when the read timeout expires and io.EOF once the
// port has been closed.
func (s *stream) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if isClosed(err) {
		return n, io.EOF
	}
	return n, err
}

func (s *stream) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *stream) Close() error {
	// Best effort; a detached device cannot drain.
	_ = s.port.Drain()
	return s.port.Close()
}

func (s *stream) Signals() (serialsession.InputSignals, error) {
	bits, err := s.port.GetModemStatusBits()
	if err != nil {
		return serialsession.InputSignals{}, err
	}
	return serialsession.InputSignals{
		ClearToSend:       bits.CTS,
		DataSetReady:      bits.DSR,
		RingIndicator:     bits.RI,
		DataCarrierDetect: bits.DCD,
	}, nil
}

// SetSignals drives DTR and RTS. go.bug.st/serial can only pulse a break,
// so raising Break sends one pulse and lowering it is a no-op.
func (s *stream) SetSignals(out serialsession.OutputSignals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.port.SetDTR(out.DataTerminalReady); err != nil {
		return err
	}
	if err := s.port.SetRTS(out.RequestToSend); err != nil {
		return err
	}

	if out.Break && !s.breakOn {
		if err := s.port.Break(s.breakDuration); err != nil {
			return err
		}
	}
	s.breakOn = out.Break
	return nil
}

func isClosed(err error) bool {
	var pe *serial.PortError
	return errors.As(err, &pe) && pe.Code() == serial.PortClosed
}
