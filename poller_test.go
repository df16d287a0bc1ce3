package serialsession

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
)

// fakeStream is a minimal Stream for poller tests
type fakeStream struct {
	mu        sync.Mutex
	inputs    InputSignals
	signalErr error
	setErr    error
	applied   []OutputSignals
}

func (f *fakeStream) Read(p []byte) (int, error)  { return 0, io.EOF }
func (f *fakeStream) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeStream) Close() error                { return nil }

func (f *fakeStream) Signals() (InputSignals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs, f.signalErr
}

func (f *fakeStream) SetSignals(out OutputSignals) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.applied = append(f.applied, out)
	return nil
}

type signalRecorder struct {
	calls   int
	last    InputSignals
	changed []SignalMask
}

func (r *signalRecorder) handle(in InputSignals, changed SignalMask) {
	r.calls++
	r.last = in
	r.changed = append(r.changed, changed)
}

func newTestPoller(logger *slog.Logger, rec *signalRecorder) *poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return newPoller(clock.NewMock(), DefaultPollInterval, DefaultPollFailureThreshold, logger, rec.handle)
}

func TestPollerNoStream(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)

	p.tick()

	if rec.calls != 0 {
		t.Errorf("Expected no notifications without a stream, got %d", rec.calls)
	}
}

func TestPollerUnchangedSignals(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)
	p.stream = &fakeStream{}

	p.tick()
	p.tick()

	if rec.calls != 0 {
		t.Errorf("Expected no notifications for unchanged signals, got %d", rec.calls)
	}
}

func TestPollerSingleNotificationPerTick(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)
	fs := &fakeStream{inputs: InputSignals{ClearToSend: true, DataSetReady: true}}
	p.stream = fs

	p.tick()

	if rec.calls != 1 {
		t.Fatalf("Expected exactly one notification, got %d", rec.calls)
	}
	if rec.changed[0] != SignalCTS|SignalDSR {
		t.Errorf("Expected changed mask cts,dsr, got %v", rec.changed[0])
	}
	if !rec.last.ClearToSend || !rec.last.DataSetReady {
		t.Errorf("Expected CTS and DSR set, got %+v", rec.last)
	}

	// Same reading again: no new notification
	p.tick()
	if rec.calls != 1 {
		t.Errorf("Expected no notification for repeated reading, got %d calls", rec.calls)
	}

	fs.inputs.ClearToSend = false
	p.tick()
	if rec.calls != 2 {
		t.Fatalf("Expected second notification after CTS drop, got %d calls", rec.calls)
	}
	if rec.changed[1] != SignalCTS {
		t.Errorf("Expected changed mask cts, got %v", rec.changed[1])
	}
	if got := p.inputSignals(); got.ClearToSend || !got.DataSetReady {
		t.Errorf("Cached inputs wrong: %+v", got)
	}
}

func TestPollerAppliesOutputsOnlyWhenChanged(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)
	fs := &fakeStream{}
	p.stream = fs

	p.tick()
	if len(fs.applied) != 0 {
		t.Fatalf("Expected no output writes before a change, got %d", len(fs.applied))
	}

	p.setOutputs(func(o *OutputSignals) { o.DataTerminalReady = true })
	p.tick()
	p.tick()

	if len(fs.applied) != 1 {
		t.Fatalf("Expected outputs applied once, got %d", len(fs.applied))
	}
	if !fs.applied[0].DataTerminalReady {
		t.Errorf("Expected DTR applied, got %+v", fs.applied[0])
	}

	// Setting the same value does not mark outputs dirty
	p.setOutputs(func(o *OutputSignals) { o.DataTerminalReady = true })
	p.tick()
	if len(fs.applied) != 1 {
		t.Errorf("Expected no re-apply for unchanged outputs, got %d", len(fs.applied))
	}
}

func TestPollerRetriesFailedOutputs(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)
	fs := &fakeStream{setErr: errors.New("ioctl failed")}
	p.stream = fs

	p.setOutputs(func(o *OutputSignals) { o.RequestToSend = true })
	p.tick()
	if p.consecutiveFailures() != 1 {
		t.Errorf("Expected 1 failure, got %d", p.consecutiveFailures())
	}

	fs.setErr = nil
	p.tick()
	if len(fs.applied) != 1 || !fs.applied[0].RequestToSend {
		t.Errorf("Expected RTS applied on retry, got %+v", fs.applied)
	}
	if p.consecutiveFailures() != 0 {
		t.Errorf("Expected failures reset after success, got %d", p.consecutiveFailures())
	}
}

func TestPollerFailureThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := &signalRecorder{}
	p := newTestPoller(logger, rec)
	fs := &fakeStream{signalErr: errors.New("device gone")}
	p.stream = fs

	for i := 0; i < 5; i++ {
		p.tick()
	}

	out := buf.String()
	if n := strings.Count(out, "level=WARN"); n != 2 {
		t.Errorf("Expected 2 warnings below threshold, got %d\n%s", n, out)
	}
	if n := strings.Count(out, "level=ERROR"); n != 1 {
		t.Errorf("Expected 1 degraded error at threshold, got %d\n%s", n, out)
	}
	if n := strings.Count(out, "level=DEBUG"); n != 2 {
		t.Errorf("Expected 2 debug lines past threshold, got %d\n%s", n, out)
	}
	if p.consecutiveFailures() != 5 {
		t.Errorf("Expected 5 consecutive failures, got %d", p.consecutiveFailures())
	}

	buf.Reset()
	fs.signalErr = nil
	p.tick()
	if !strings.Contains(buf.String(), "signal polling recovered") {
		t.Errorf("Expected recovery log, got %q", buf.String())
	}
	if p.consecutiveFailures() != 0 {
		t.Errorf("Expected failures reset, got %d", p.consecutiveFailures())
	}
}

func TestPollerStopKeepsInputs(t *testing.T) {
	rec := &signalRecorder{}
	p := newTestPoller(nil, rec)
	fs := &fakeStream{inputs: InputSignals{RingIndicator: true}}

	p.start(fs)
	p.tick()
	p.stop()

	if !p.inputSignals().RingIndicator {
		t.Error("Expected cached inputs to survive stop")
	}

	// Ticking after stop is a no-op
	fs.inputs.RingIndicator = false
	p.tick()
	if !p.inputSignals().RingIndicator {
		t.Error("Expected no polling after stop")
	}
}
