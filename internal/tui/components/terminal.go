package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultScrollback is how many messages a Terminal keeps.
const DefaultScrollback = 5000

// Terminal is a scrolling view of received and sent data.
type Terminal struct {
	viewport   viewport.Model
	formatter  *DataFormatter
	messages   []DataMsg
	lines      []string
	scrollback int
}

func NewTerminal(width, height int, mode DisplayMode) *Terminal {
	return &Terminal{
		viewport:   viewport.New(width, height),
		formatter:  NewDataFormatter(mode),
		scrollback: DefaultScrollback,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Formatter() *DataFormatter {
	return t.formatter
}

// Messages returns the retained messages, oldest first.
func (t *Terminal) Messages() []DataMsg {
	return t.messages
}

func (t *Terminal) Add(msg DataMsg) {
	t.messages = append(t.messages, msg)
	t.lines = append(t.lines, t.formatter.FormatMessage(msg))
	if over := len(t.messages) - t.scrollback; over > 0 {
		t.messages = t.messages[over:]
		t.lines = t.lines[over:]
	}
	t.render()
}

// Refresh reformats every retained message after a display mode change.
func (t *Terminal) Refresh() {
	t.lines = t.formatter.FormatMessages(t.messages)
	t.render()
}

func (t *Terminal) Clear() {
	t.messages = nil
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoBottom()
}

// Update only forwards resizes; key presses belong to the owning model.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
