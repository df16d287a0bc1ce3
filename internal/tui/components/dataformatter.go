package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialsession/internal/tui/styles"
)

// Direction tells received data from sent data.
type Direction int

const (
	RX Direction = iota
	TX
)

// DataMsg carries one chunk that crossed the wire. Err is set for a TX
// chunk that failed to send.
type DataMsg struct {
	Timestamp time.Time
	Data      []byte
	Dir       Direction
	Err       error
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
}

// DefaultDisplayMode shows hex, ASCII and timestamps.
var DefaultDisplayMode = DisplayMode{ShowHex: true, ShowASCII: true, ShowTimestamps: true}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) Mode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

// FormatMessage renders one line: optional timestamp, direction marker,
// then the enabled views of the payload.
func (df *DataFormatter) FormatMessage(msg DataMsg) string {
	var line []string

	if df.mode.ShowTimestamps {
		line = append(line, lipgloss.NewStyle().
			Foreground(styles.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000"))))
	}
	line = append(line, indicator(msg))

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printableASCII(msg.Data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}
	if msg.Err != nil {
		parts = append(parts, styles.ErrorStyle.Render(msg.Err.Error()))
	}

	return strings.Join(line, " ") + " " + strings.Join(parts, "  ")
}

func (df *DataFormatter) FormatMessages(messages []DataMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func indicator(msg DataMsg) string {
	switch {
	case msg.Dir == RX:
		return lipgloss.NewStyle().Foreground(styles.Sky).Bold(true).Render("↙ RX")
	case msg.Err != nil:
		return lipgloss.NewStyle().Foreground(styles.Red).Bold(true).Render("↗ TX ✗")
	default:
		return lipgloss.NewStyle().Foreground(styles.Green).Bold(true).Render("↗ TX ✓")
	}
}

// printableASCII replaces everything outside 0x20-0x7e with '.' so control
// bytes never reach the terminal.
func printableASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
