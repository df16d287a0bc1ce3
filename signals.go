package serialsession

import "strings"

// InputSignals are the modem status lines driven by the remote device.
type InputSignals struct {
	ClearToSend       bool // CTS
	DataCarrierDetect bool // DCD
	DataSetReady      bool // DSR
	RingIndicator     bool // RI
}

// OutputSignals are the lines driven by this end of the connection.
type OutputSignals struct {
	Break             bool
	DataTerminalReady bool // DTR
	RequestToSend     bool // RTS
}

// SignalMask identifies a set of input signals
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD

	SignalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD
)

// String renders the mask as a comma separated list, e.g. "cts,dcd".
func (m SignalMask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	if m&SignalCTS != 0 {
		names = append(names, "cts")
	}
	if m&SignalDSR != 0 {
		names = append(names, "dsr")
	}
	if m&SignalRI != 0 {
		names = append(names, "ri")
	}
	if m&SignalDCD != 0 {
		names = append(names, "dcd")
	}
	return strings.Join(names, ",")
}

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(old, cur InputSignals) SignalMask {
	var changed SignalMask
	if old.ClearToSend != cur.ClearToSend {
		changed |= SignalCTS
	}
	if old.DataSetReady != cur.DataSetReady {
		changed |= SignalDSR
	}
	if old.RingIndicator != cur.RingIndicator {
		changed |= SignalRI
	}
	if old.DataCarrierDetect != cur.DataCarrierDetect {
		changed |= SignalDCD
	}
	return changed
}

// mergeSignals copies only the masked fields of cur into old.
func mergeSignals(old, cur InputSignals, mask SignalMask) InputSignals {
	if mask&SignalCTS != 0 {
		old.ClearToSend = cur.ClearToSend
	}
	if mask&SignalDSR != 0 {
		old.DataSetReady = cur.DataSetReady
	}
	if mask&SignalRI != 0 {
		old.RingIndicator = cur.RingIndicator
	}
	if mask&SignalDCD != 0 {
		old.DataCarrierDetect = cur.DataCarrierDetect
	}
	return old
}
