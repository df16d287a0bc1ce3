package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/tui/styles"
)

// StatusBar is the single line at the bottom of the session views.
type StatusBar struct {
	port    string
	width   int
	state   serialsession.State
	config  serialsession.Config
	inputs  serialsession.InputSignals
	outputs serialsession.OutputSignals
	status  string
	err     error
}

func NewStatusBar(port string, cfg serialsession.Config) *StatusBar {
	return &StatusBar{
		port:   port,
		config: cfg,
		status: "Connecting...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetState(st serialsession.State) {
	sb.state = st
}

func (sb *StatusBar) SetSignals(in serialsession.InputSignals, out serialsession.OutputSignals) {
	sb.inputs = in
	sb.outputs = out
}

// SetStatus sets the status text. A non-nil err marks the connection failed.
func (sb *StatusBar) SetStatus(status string, err error) {
	sb.status = status
	sb.err = err
}

func (sb *StatusBar) Status() string {
	return sb.status
}

// View renders mode badge, port, connection lamp and signals on the left,
// line settings and the clock on the right.
func (sb *StatusBar) View(mode string, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	badge := styles.ModeStyle(styles.Blue).Render(mode)
	if mode == "INSERT" {
		badge = styles.ModeStyle(styles.Green).Render(mode)
	}

	port := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true).Padding(0, 1).Render(sb.port)

	lamp := lipgloss.NewStyle().Foreground(styles.Yellow).Render("○")
	switch {
	case sb.err != nil:
		lamp = lipgloss.NewStyle().Foreground(styles.Red).Render("✗")
	case sb.state == serialsession.StateReading:
		lamp = lipgloss.NewStyle().Foreground(styles.Green).Render("●")
	case sb.state == serialsession.StateOpen:
		lamp = lipgloss.NewStyle().Foreground(styles.Yellow).Render("●")
	}

	status := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(sb.status)
	divider := lipgloss.NewStyle().Foreground(styles.Surface2).Padding(0, 1).Render("│")

	left := lipgloss.JoinHorizontal(lipgloss.Left, badge, port, lamp, status, divider, sb.signalView())

	settings := lipgloss.NewStyle().Foreground(styles.Subtext0).Padding(0, 1).
		Render(fmt.Sprintf("⚡ %s", sb.config.String()))
	clock := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(timestamp)
	right := lipgloss.JoinHorizontal(lipgloss.Left, settings, divider, clock)

	spacer := lipgloss.NewStyle().
		Width(max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)).
		Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}

func (sb *StatusBar) signalView() string {
	lamps := []struct {
		name string
		on   bool
	}{
		{"CTS", sb.inputs.ClearToSend},
		{"DSR", sb.inputs.DataSetReady},
		{"RI", sb.inputs.RingIndicator},
		{"DCD", sb.inputs.DataCarrierDetect},
		{"DTR", sb.outputs.DataTerminalReady},
		{"RTS", sb.outputs.RequestToSend},
		{"BRK", sb.outputs.Break},
	}

	var out string
	for i, l := range lamps {
		if i > 0 {
			out += " "
		}
		if l.on {
			out += styles.SignalOnStyle.Render(l.name)
		} else {
			out += styles.SignalOffStyle.Render(l.name)
		}
	}
	return out
}
