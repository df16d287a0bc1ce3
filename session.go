package serialsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle state of a Session
type State int

const (
	StateClosed State = iota
	StateOpen
	StateReading
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateReading:
		return "reading"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateHandler is called after state transitions, one call at a time and
// with the state current at the time of the call. A transition superseded
// before it is reported is coalesced, so the last call always matches State.
// The handler must not call back into Open, Close, StartReading or
// StopReading synchronously.
type StateHandler func(State)

// SessionOption configures a Session
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger        *slog.Logger
	clock         clock.Clock
	pollInterval  time.Duration
	pollThreshold int
	onSignals     SignalHandler
	onState       StateHandler
	store         *ConfigStore
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock driving the signal poller.
func WithClock(clk clock.Clock) SessionOption {
	return func(o *sessionOptions) {
		o.clock = clk
	}
}

// WithPollInterval sets the control signal polling period.
func WithPollInterval(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithPollFailureThreshold sets how many consecutive poll failures are
// reported as warnings before the poller drops to debug logging.
func WithPollFailureThreshold(n int) SessionOption {
	return func(o *sessionOptions) {
		if n > 0 {
			o.pollThreshold = n
		}
	}
}

// WithSignalHandler registers a callback for input signal changes.
func WithSignalHandler(fn SignalHandler) SessionOption {
	return func(o *sessionOptions) {
		o.onSignals = fn
	}
}

// WithStateHandler registers a callback for state transitions.
func WithStateHandler(fn StateHandler) SessionOption {
	return func(o *sessionOptions) {
		o.onState = fn
	}
}

// WithConfigStore shares a ConfigStore with the session.
func WithConfigStore(store *ConfigStore) SessionOption {
	return func(o *sessionOptions) {
		o.store = store
	}
}

// Session owns one open device connection and enforces the
// Closed -> Open -> Reading -> Open -> Closed lifecycle.
type Session struct {
	host     Host
	registry *Registry
	store    *ConfigStore
	logger   *slog.Logger
	onState  StateHandler
	poller   *poller

	// lifecycle serializes Open and Close end to end.
	lifecycle sync.Mutex

	// emitMu orders state handler calls; reported is guarded by it.
	emitMu   sync.Mutex
	reported State

	mu        sync.Mutex
	state     State
	handle    Handle
	stream    Stream
	gen       uint64
	loop      *ReadLoop
	liveLoops int

	readSem  *semaphore.Weighted
	writeSem *semaphore.Weighted
}

// NewSession creates a closed session that opens whatever registry has selected.
func NewSession(host Host, registry *Registry, opts ...SessionOption) *Session {
	o := sessionOptions{
		logger:        slog.New(slog.DiscardHandler),
		clock:         clock.New(),
		pollInterval:  DefaultPollInterval,
		pollThreshold: DefaultPollFailureThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewConfigStore()
	}

	return &Session{
		host:     host,
		registry: registry,
		store:    o.store,
		logger:   o.logger,
		onState:  o.onState,
		poller:   newPoller(o.clock, o.pollInterval, o.pollThreshold, o.logger, o.onSignals),
		readSem:  semaphore.NewWeighted(1),
		writeSem: semaphore.NewWeighted(1),
	}
}

// State returns the reported state. After StopReading it reports Open even
// if the read loop has not exited yet; use ReadLoop.Done to confirm.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the handle the session is currently open on.
func (s *Session) Handle() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.state != StateClosed
}

// Config returns the stored configuration.
func (s *Session) Config() Config {
	return s.store.Get()
}

// Configure updates the stored configuration. It fails with ErrAlreadyOpen
// unless the session is closed.
func (s *Session) Configure(opts ...Option) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return ErrAlreadyOpen
	}
	return s.store.Update(opts...)
}

// Open opens the selected port with the stored configuration plus opts.
// The configuration is committed only if the device opens.
func (s *Session) Open(ctx context.Context, opts ...Option) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	h, ok := s.registry.Selected()
	if !ok {
		s.mu.Unlock()
		return ErrNoPortSelected
	}
	if s.state != StateClosed {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	cfg, err := s.store.Preview(opts...)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	stream, err := s.host.Open(ctx, h, cfg)
	if err != nil {
		return deviceError("open", h, err)
	}

	s.mu.Lock()
	s.store.set(cfg)
	s.stream = stream
	s.handle = h
	s.gen++
	s.state = StateOpen
	s.poller.start(stream)
	s.mu.Unlock()

	s.logger.Info("serial port opened", "port", h, "config", cfg.String())
	s.emit()
	return nil
}

// Close releases the device. It fails with ErrReadLocked while a read loop
// holds read access, including a stopped loop that has not exited yet.
//
// Close waits for an in-flight Write to finish. A write held back by flow
// control can block it, and Open and Configure with it, indefinitely; use
// CloseContext to bound the wait.
func (s *Session) Close() error {
	return s.CloseContext(context.Background())
}

// CloseContext is Close with ctx bounding the wait for an in-flight Write.
// When ctx ends first the session stays open and ctx.Err() is returned.
func (s *Session) CloseContext(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.checkClosable(); err != nil {
		return err
	}

	// Wait for in-flight writes without holding mu.
	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writeSem.Release(1)

	s.mu.Lock()
	if err := s.closableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	h, stream := s.handle, s.stream
	s.mu.Unlock()

	// No tick may touch the stream once it is closed.
	s.poller.stop()

	s.mu.Lock()
	if err := stream.Close(); err != nil {
		s.poller.start(stream)
		s.mu.Unlock()
		return deviceError("close", h, err)
	}
	s.stream = nil
	s.state = StateClosed
	s.mu.Unlock()

	s.logger.Info("serial port closed", "port", h)
	s.emit()
	return nil
}

func (s *Session) checkClosable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closableLocked()
}

func (s *Session) closableLocked() error {
	if _, ok := s.registry.Selected(); !ok {
		return ErrNoPortSelected
	}
	switch {
	case s.state == StateClosed:
		return ErrNotOpen
	case s.state == StateReading, s.liveLoops > 0:
		return ErrReadLocked
	}
	return nil
}

// StartReading starts the read loop. onData is called synchronously, in
// order, with a fresh copy of every non-empty chunk. The loop ends at
// end-of-data, on StopReading, when ctx is done, or on a device error.
func (s *Session) StartReading(ctx context.Context, onData func([]byte)) (*ReadLoop, error) {
	if onData == nil {
		return nil, errors.New("serialsession: nil data callback")
	}

	s.mu.Lock()
	if _, ok := s.registry.Selected(); !ok {
		s.mu.Unlock()
		return nil, ErrNoPortSelected
	}
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrNotOpen
	case StateReading:
		s.mu.Unlock()
		return nil, ErrReadLocked
	}

	loop := newReadLoop(s.handle)
	s.loop = loop
	s.liveLoops++
	s.state = StateReading
	stream := s.stream
	size := s.store.Get().BufferSize
	s.mu.Unlock()

	s.logger.Debug("read loop started", "port", loop.handle)
	s.emit()

	go func() {
		err := s.readLoop(ctx, loop, stream, size, onData)
		s.loopExited(loop, err)
	}()
	return loop, nil
}

// readLoop pulls chunks until cancelled, end-of-data or error. Read access
// is released on every exit path.
func (s *Session) readLoop(ctx context.Context, loop *ReadLoop, stream Stream, size int, onData func([]byte)) error {
	if err := s.readSem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer s.readSem.Release(1)

	buf := make([]byte, size)
	for {
		if loop.cancelled.Load() || ctx.Err() != nil {
			return nil
		}

		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			loop.delivered.Inc()
			onData(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return deviceError("read", loop.handle, err)
		}
	}
}

func (s *Session) loopExited(loop *ReadLoop, err error) {
	s.mu.Lock()
	s.liveLoops--
	var emit bool
	if s.loop == loop {
		s.loop = nil
		if s.state == StateReading {
			s.state = StateOpen
			emit = true
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("read loop failed", "port", loop.handle, "error", err)
	} else {
		s.logger.Debug("read loop finished", "port", loop.handle, "chunks", loop.Delivered())
	}
	loop.finish(err)
	if emit {
		s.emit()
	}
}

// StopReading asks the read loop to stop at its next iteration boundary.
// It does not wait: the reported state becomes Open immediately while an
// in-flight read still completes and delivers. It is a no-op when the
// session is open but not reading.
func (s *Session) StopReading() error {
	s.mu.Lock()
	if _, ok := s.registry.Selected(); !ok {
		s.mu.Unlock()
		return ErrNoPortSelected
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.state != StateReading {
		s.mu.Unlock()
		return nil
	}
	s.loop.stop()
	s.state = StateOpen
	s.mu.Unlock()

	s.emit()
	return nil
}

// Write sends all of data. Concurrent writes are serialized; ctx bounds the
// wait for write access, not the write itself.
func (s *Session) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	if _, ok := s.registry.Selected(); !ok {
		s.mu.Unlock()
		return ErrNoPortSelected
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrNotOpen
	}
	stream, gen, h := s.stream, s.gen, s.handle
	s.mu.Unlock()

	if err := s.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writeSem.Release(1)

	// The session may have been closed (and reopened) while we waited.
	s.mu.Lock()
	stale := s.state == StateClosed || s.gen != gen
	s.mu.Unlock()
	if stale {
		return ErrNotOpen
	}

	for len(data) > 0 {
		n, err := stream.Write(data)
		if err != nil {
			return deviceError("write", h, err)
		}
		if n == 0 {
			return deviceError("write", h, io.ErrShortWrite)
		}
		data = data[n:]
	}
	return nil
}

// PortInfo returns identity information for h without touching session state.
func (s *Session) PortInfo(ctx context.Context, h Handle) (PortInfo, error) {
	info, err := s.host.Info(ctx, h)
	if err != nil {
		return PortInfo{}, deviceError("info", h, err)
	}
	return newPortInfo(h, info), nil
}

// Signals returns the input signals seen by the last successful poll.
func (s *Session) Signals() InputSignals {
	return s.poller.inputSignals()
}

// OutputSignals returns the requested output signals.
func (s *Session) OutputSignals() OutputSignals {
	return s.poller.outputSignals()
}

// SetSignals requests new output signals, applied on the next poll tick.
func (s *Session) SetSignals(out OutputSignals) {
	s.poller.setOutputs(func(o *OutputSignals) { *o = out })
}

// SetDTR requests the Data Terminal Ready line state.
func (s *Session) SetDTR(state bool) {
	s.poller.setOutputs(func(o *OutputSignals) { o.DataTerminalReady = state })
}

// SetRTS requests the Request To Send line state.
func (s *Session) SetRTS(state bool) {
	s.poller.setOutputs(func(o *OutputSignals) { o.RequestToSend = state })
}

// SetBreak requests the break condition.
func (s *Session) SetBreak(state bool) {
	s.poller.setOutputs(func(o *OutputSignals) { o.Break = state })
}

// SyncSignals waits for the next successful poll tick, or for ctx. After
// it returns nil, output signals requested before the call have reached
// the device and Signals reflects a fresh sample. A session closed while
// waiting blocks until ctx is done.
func (s *Session) SyncSignals(ctx context.Context) error {
	if s.State() == StateClosed {
		return ErrNotOpen
	}
	select {
	case <-s.poller.nextPoll():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollFailures returns the number of consecutive failed signal polls.
func (s *Session) PollFailures() int {
	return s.poller.consecutiveFailures()
}

// emit reports the current state. Holding emitMu while reading the state
// and calling the handler keeps reports in transition order across the
// caller and read loop goroutines.
func (s *Session) emit() {
	if s.onState == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	st := s.State()
	if st == s.reported {
		return
	}
	s.reported = st
	s.onState(st)
}

// ReadLoop tracks one run of the read loop started by StartReading.
type ReadLoop struct {
	handle    Handle
	cancelled atomic.Bool
	delivered atomic.Int64
	done      chan struct{}
	err       error
}

func newReadLoop(h Handle) *ReadLoop {
	return &ReadLoop{handle: h, done: make(chan struct{})}
}

func (l *ReadLoop) stop() {
	l.cancelled.Store(true)
}

func (l *ReadLoop) finish(err error) {
	l.err = err
	close(l.done)
}

// Done is closed once the loop has exited and released read access.
func (l *ReadLoop) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the loop exits and returns its error: nil after
// end-of-data or cancellation, a *DeviceError after a read failure.
func (l *ReadLoop) Wait() error {
	<-l.done
	return l.err
}

// Err returns the loop error, or nil while the loop is still running.
func (l *ReadLoop) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Delivered returns the number of chunks handed to the data callback.
func (l *ReadLoop) Delivered() int64 {
	return l.delivered.Load()
}
