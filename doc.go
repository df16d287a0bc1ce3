// Package serialsession manages a single serial port through its whole
// lifecycle: picking a port, opening it with validated settings, streaming
// received data, serializing writes, tracking modem control lines and
// closing it again.
//
// The package does not talk to hardware itself. A Host implementation
// provides enumeration, authorization, opening and USB identity; the
// host/termios (Linux) and host/bugst (cross-platform) packages are the
// bundled backends, and mockhost is an in-memory one for tests.
//
// # Basic Usage
//
// Build a registry over a host, pick a port and open a session:
//
//	host := termios.New()
//	registry := serialsession.NewRegistry(host)
//	registry.Select("/dev/ttyUSB0")
//
//	session := serialsession.NewSession(host, registry,
//	    serialsession.WithLogger(logger),
//	)
//	if err := session.Open(ctx, serialsession.WithBaudRate(9600)); err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	err := session.Write(ctx, []byte("AT\r\n"))
//
// # Reading
//
// StartReading runs a read loop that hands every received chunk, in order,
// to a callback. Only one loop runs at a time and the session cannot be
// closed while one is live:
//
//	loop, err := session.StartReading(ctx, func(chunk []byte) {
//	    os.Stdout.Write(chunk)
//	})
//	...
//	session.StopReading()
//	err = loop.Wait()
//
// # Session States
//
// A session is Closed, Open or Reading. Open fails with ErrAlreadyOpen
// unless Closed, Close fails with ErrReadLocked while a read loop is
// live, and StartReading fails with ErrReadLocked while one is running.
// WithStateHandler reports transitions in order, one call at a time.
//
// # Control Signals
//
// While open, a poller samples CTS, DSR, RI and DCD and applies the
// requested DTR, RTS and break outputs on every tick:
//
//	session.SetDTR(true)
//	session.SetRTS(false)
//	if err := session.SyncSignals(ctx); err == nil {
//	    fmt.Println(session.Signals().ClearToSend)
//	}
//
// Changed inputs are reported once per tick through WithSignalHandler.
//
// # Configuration
//
// Settings live in a ConfigStore shared with the session. Functional
// options are validated as a whole before anything is stored; the
// defaults are 115200 8N1 without flow control.
//
// # Device Events
//
// EventBridge forwards attach and detach events from an EventSource to
// the registry's OnAttach and OnDetach callbacks.
//
// # Error Handling
//
// Host failures are wrapped in *DeviceError, which matches ErrDevice as
// well as the underlying sentinel:
//
//	if errors.Is(err, serialsession.ErrDeviceBusy) {
//	    // another process owns the port
//	}
package serialsession
