package serialsession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

const (
	// DefaultPollInterval is how often control signals are sampled.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultPollFailureThreshold is the number of consecutive poll
	// failures after which the poller stops warning and logs at debug level.
	DefaultPollFailureThreshold = 3
)

// SignalHandler is called with the current inputs and the set that changed.
type SignalHandler func(signals InputSignals, changed SignalMask)

// poller samples input signals and applies pending output signals on a
// fixed cadence while a stream is attached.
type poller struct {
	clk       clock.Clock
	interval  time.Duration
	threshold int
	logger    *slog.Logger
	onChange  SignalHandler

	mu           sync.Mutex
	stream       Stream
	inputs       InputSignals
	outputs      OutputSignals
	outputsDirty bool
	polled       chan struct{}

	failures atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
}

func newPoller(clk clock.Clock, interval time.Duration, threshold int, logger *slog.Logger, onChange SignalHandler) *poller {
	return &poller{
		clk:       clk,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
		onChange:  onChange,
		polled:    make(chan struct{}),
	}
}

// start attaches stream and begins ticking.
func (p *poller) start(stream Stream) {
	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
	p.failures.Store(0)

	// First interval counts from start, not from when run is scheduled.
	ticker := p.clk.Ticker(p.interval)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, ticker, p.done)
}

// stop halts ticking and detaches the stream. Cached inputs are kept.
func (p *poller) stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
		p.cancel = nil
	}
	p.mu.Lock()
	p.stream = nil
	p.mu.Unlock()
}

func (p *poller) run(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick runs one poll cycle. It is a no-op while no stream is attached.
func (p *poller) tick() {
	p.mu.Lock()
	stream := p.stream
	out, dirty := p.outputs, p.outputsDirty
	p.mu.Unlock()

	if stream == nil {
		return
	}

	if dirty {
		if err := stream.SetSignals(out); err != nil {
			p.fail("set signals", err)
			return
		}
		p.mu.Lock()
		if p.outputs == out {
			p.outputsDirty = false
		}
		p.mu.Unlock()
	}

	in, err := stream.Signals()
	if err != nil {
		p.fail("get signals", err)
		return
	}
	if n := p.failures.Swap(0); n >= int32(p.threshold) {
		p.logger.Info("signal polling recovered", "failures", n)
	}

	p.mu.Lock()
	changed := detectSignalChanges(p.inputs, in)
	if changed != 0 {
		p.inputs = mergeSignals(p.inputs, in, changed)
	}
	current := p.inputs
	close(p.polled)
	p.polled = make(chan struct{})
	p.mu.Unlock()

	if changed != 0 && p.onChange != nil {
		p.onChange(current, changed)
	}
}

func (p *poller) fail(op string, err error) {
	n := p.failures.Inc()
	switch {
	case n < int32(p.threshold):
		p.logger.Warn("signal poll failed", "op", op, "error", err, "failures", n)
	case n == int32(p.threshold):
		p.logger.Error("signal polling degraded, further failures logged at debug level",
			"op", op, "error", err, "failures", n)
	default:
		p.logger.Debug("signal poll failed", "op", op, "error", err, "failures", n)
	}
}

func (p *poller) inputSignals() InputSignals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputs
}

func (p *poller) outputSignals() OutputSignals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outputs
}

// setOutputs records the desired outputs; the next tick applies them.
func (p *poller) setOutputs(update func(*OutputSignals)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.outputs
	update(&next)
	if next != p.outputs {
		p.outputs = next
		p.outputsDirty = true
	}
}

// nextPoll returns a channel closed when the next successful tick ends.
func (p *poller) nextPoll() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polled
}

func (p *poller) consecutiveFailures() int {
	return int(p.failures.Load())
}
