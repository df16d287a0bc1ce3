// Package mockhost provides an in-memory serialsession.Host for tests and
// demos. Streams are scripted: tests feed chunks, end-of-data and read
// errors, and inspect what was written and which signals were requested.
package mockhost

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	serialsession "github.com/allbin/go-serialsession"
)

// DefaultIdleTimeout is how long Read waits for scripted data before
// returning an idle (0, nil) poll.
const DefaultIdleTimeout = 2 * time.Millisecond

// Host is a scripted serialsession.Host and serialsession.EventSource.
type Host struct {
	mu         sync.Mutex
	authorized []serialsession.Handle
	grant      serialsession.Handle
	listErr    error
	openErr    error
	info       map[serialsession.Handle]serialsession.USBInfo
	listCalls  int
	streams    []*Stream
	configs    []serialsession.Config
	events     chan serialsession.DeviceEvent
	watchErr   error
}

var (
	_ serialsession.Host        = (*Host)(nil)
	_ serialsession.EventSource = (*Host)(nil)
)

// New returns a host that reports authorized as previously granted ports.
func New(authorized ...serialsession.Handle) *Host {
	return &Host{
		authorized: authorized,
		info:       make(map[serialsession.Handle]serialsession.USBInfo),
		events:     make(chan serialsession.DeviceEvent, 16),
	}
}

// Grant makes the next RequestPort calls succeed with h. An empty handle
// makes them fail with ErrAuthorizationDenied, which is the default.
func (h *Host) Grant(handle serialsession.Handle) {
	h.mu.Lock()
	h.grant = handle
	h.mu.Unlock()
}

// FailList makes ListAuthorized return err.
func (h *Host) FailList(err error) {
	h.mu.Lock()
	h.listErr = err
	h.mu.Unlock()
}

// FailOpen makes Open return err. Pass nil to clear.
func (h *Host) FailOpen(err error) {
	h.mu.Lock()
	h.openErr = err
	h.mu.Unlock()
}

// SetInfo registers USB identity for handle.
func (h *Host) SetInfo(handle serialsession.Handle, info serialsession.USBInfo) {
	h.mu.Lock()
	h.info[handle] = info
	h.mu.Unlock()
}

// ListCalls returns how many times ListAuthorized was called.
func (h *Host) ListCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listCalls
}

// Opens returns how many streams have been opened.
func (h *Host) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// LastStream returns the most recently opened stream, or nil.
func (h *Host) LastStream() *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

// LastConfig returns the configuration passed to the most recent Open.
func (h *Host) LastConfig() serialsession.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.configs) == 0 {
		return serialsession.Config{}
	}
	return h.configs[len(h.configs)-1]
}

// ListAuthorized implements serialsession.Host.
func (h *Host) ListAuthorized(ctx context.Context) ([]serialsession.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listCalls++
	if h.listErr != nil {
		return nil, h.listErr
	}
	out := make([]serialsession.Handle, len(h.authorized))
	copy(out, h.authorized)
	return out, nil
}

// RequestPort implements serialsession.Host.
func (h *Host) RequestPort(ctx context.Context, filter serialsession.Filter) (serialsession.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.grant == "" || !filter.Matches(h.grant, h.info[h.grant]) {
		return "", serialsession.ErrAuthorizationDenied
	}
	return h.grant, nil
}

// Open implements serialsession.Host.
func (h *Host) Open(ctx context.Context, handle serialsession.Handle, cfg serialsession.Config) (serialsession.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	s := NewStream()
	h.streams = append(h.streams, s)
	h.configs = append(h.configs, cfg)
	return s, nil
}

// Info implements serialsession.Host.
func (h *Host) Info(ctx context.Context, handle serialsession.Handle) (serialsession.USBInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	info, ok := h.info[handle]
	if !ok {
		return serialsession.USBInfo{}, serialsession.ErrUSBInfoNotAvailable
	}
	return info, nil
}

// FailWatch makes Watch return err.
func (h *Host) FailWatch(err error) {
	h.mu.Lock()
	h.watchErr = err
	h.mu.Unlock()
}

// Emit queues a device event for the watcher.
func (h *Host) Emit(ev serialsession.DeviceEvent) {
	h.events <- ev
}

// Watch implements serialsession.EventSource. Only one watcher is supported.
func (h *Host) Watch(ctx context.Context) (<-chan serialsession.DeviceEvent, error) {
	h.mu.Lock()
	err := h.watchErr
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make(chan serialsession.DeviceEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-h.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type readItem struct {
	data []byte
	err  error
}

// Stream is a scripted serialsession.Stream.
type Stream struct {
	reads chan readItem

	mu          sync.Mutex
	idleTimeout time.Duration
	inFlight    int
	writeGate   chan struct{}
	heldWrites  int
	pending    []byte
	closed     bool
	closeErr   error
	maxWrite   int
	writeErr   error
	writes     [][]byte
	inputs     serialsession.InputSignals
	signalErr  error
	setErr     error
	outputs    []serialsession.OutputSignals
	signalPoll int
}

var _ serialsession.Stream = (*Stream)(nil)

// NewStream returns an open stream with nothing scripted.
func NewStream() *Stream {
	return &Stream{
		reads:       make(chan readItem, 1024),
		idleTimeout: DefaultIdleTimeout,
	}
}

// Feed queues data to be returned by Read. Chunks larger than the reader's
// buffer are split across reads.
func (s *Stream) Feed(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.reads <- readItem{data: cp}
}

// End queues end-of-data.
func (s *Stream) End() {
	s.reads <- readItem{err: io.EOF}
}

// FailRead queues a read error.
func (s *Stream) FailRead(err error) {
	s.reads <- readItem{err: err}
}

// SetIdleTimeout changes how long Read waits for scripted data. A long
// timeout keeps a read in flight until Feed, End or FailRead.
func (s *Stream) SetIdleTimeout(d time.Duration) {
	s.mu.Lock()
	s.idleTimeout = d
	s.mu.Unlock()
}

// InFlightReads returns how many Read calls are waiting for scripted data.
func (s *Stream) InFlightReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Read implements io.Reader. It returns (0, nil) when nothing is queued
// within the idle timeout.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, io.EOF
	}
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.inFlight++
	idle := s.idleTimeout
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	timer := time.NewTimer(idle)
	defer timer.Stop()

	select {
	case item := <-s.reads:
		if item.err != nil {
			return 0, item.err
		}
		n := copy(p, item.data)
		if n < len(item.data) {
			s.mu.Lock()
			s.pending = append(s.pending, item.data[n:]...)
			s.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

// LimitWrite caps how many bytes a single Write accepts. Zero means no limit.
func (s *Stream) LimitWrite(n int) {
	s.mu.Lock()
	s.maxWrite = n
	s.mu.Unlock()
}

// FailWrite makes Write return err.
func (s *Stream) FailWrite(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// HoldWrites makes Write block, as if stalled by flow control, until the
// returned release function is called.
func (s *Stream) HoldWrites() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.writeGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.writeGate == gate {
				s.writeGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// HeldWrites returns how many Write calls are blocked by HoldWrites.
func (s *Stream) HeldWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heldWrites
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	gate := s.writeGate
	if gate != nil {
		s.heldWrites++
	}
	s.mu.Unlock()
	if gate != nil {
		<-gate
		s.mu.Lock()
		s.heldWrites--
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("mockhost: write on closed stream")
	}
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if s.maxWrite > 0 && n > s.maxWrite {
		n = s.maxWrite
	}
	w := make([]byte, n)
	copy(w, p[:n])
	s.writes = append(s.writes, w)
	return n, nil
}

// Writes returns the bytes accepted by each Write call, in order.
func (s *Stream) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Written returns everything written so far.
func (s *Stream) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, w := range s.writes {
		out = append(out, w...)
	}
	return out
}

// FailClose makes Close return err and leave the stream open.
func (s *Stream) FailClose(err error) {
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	s.closed = true
	return nil
}

// Closed reports whether Close succeeded.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SetInputs sets the input signals reported by Signals.
func (s *Stream) SetInputs(in serialsession.InputSignals) {
	s.mu.Lock()
	s.inputs = in
	s.mu.Unlock()
}

// FailSignals makes Signals return err. Pass nil to clear.
func (s *Stream) FailSignals(err error) {
	s.mu.Lock()
	s.signalErr = err
	s.mu.Unlock()
}

// FailSetSignals makes SetSignals return err. Pass nil to clear.
func (s *Stream) FailSetSignals(err error) {
	s.mu.Lock()
	s.setErr = err
	s.mu.Unlock()
}

// Signals implements serialsession.Stream.
func (s *Stream) Signals() (serialsession.InputSignals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signalPoll++
	if s.signalErr != nil {
		return serialsession.InputSignals{}, s.signalErr
	}
	return s.inputs, nil
}

// SignalPolls returns how many times Signals was called.
func (s *Stream) SignalPolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signalPoll
}

// SetSignals implements serialsession.Stream.
func (s *Stream) SetSignals(out serialsession.OutputSignals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.outputs = append(s.outputs, out)
	return nil
}

// AppliedOutputs returns every output state successfully applied, in order.
func (s *Stream) AppliedOutputs() []serialsession.OutputSignals {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]serialsession.OutputSignals, len(s.outputs))
	copy(out, s.outputs)
	return out
}
