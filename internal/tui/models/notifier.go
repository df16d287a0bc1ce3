package models

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/tui/components"
)

// StateMsg reports a session state transition.
type StateMsg struct {
	State serialsession.State
}

// SignalsMsg reports changed input signals.
type SignalsMsg struct {
	Inputs  serialsession.InputSignals
	Changed serialsession.SignalMask
}

// Notifier turns session callbacks into program messages. It exists before
// the program does, so the session can be built first; anything sent
// before Attach is dropped.
type Notifier struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// Attach starts forwarding to send, usually a tea.Program's Send.
func (n *Notifier) Attach(send func(tea.Msg)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

func (n *Notifier) Send(msg tea.Msg) {
	n.mu.RLock()
	send := n.send
	n.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// Signals is a serialsession.SignalHandler.
func (n *Notifier) Signals(in serialsession.InputSignals, changed serialsession.SignalMask) {
	n.Send(SignalsMsg{Inputs: in, Changed: changed})
}

// State is a serialsession.StateHandler.
func (n *Notifier) State(st serialsession.State) {
	n.Send(StateMsg{State: st})
}

// Data is a read loop callback. The session hands over a fresh slice per
// chunk, so it is kept as is.
func (n *Notifier) Data(b []byte) {
	n.Send(components.DataMsg{Timestamp: time.Now(), Data: b, Dir: components.RX})
}
