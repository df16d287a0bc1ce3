package components

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serialsession/internal/tui/styles"
)

// SendMode selects how typed text becomes bytes.
type SendMode int

const (
	SendASCII SendMode = iota
	SendHex
)

func (s SendMode) String() string {
	if s == SendHex {
		return "HEX"
	}
	return "ASCII"
}

const (
	historyLimit     = 100
	asciiPlaceholder = "Type message and press Enter to send..."
	hexPlaceholder   = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
)

// ParseHex decodes hex text, ignoring spaces and 0x prefixes.
func ParseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(s)
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// Input is the send line of the connect view, with per-session history.
type Input struct {
	textInput    textinput.Model
	mode         SendMode
	appendNL     bool
	history      []string
	historyIndex int
	draft        string
	width        int
}

func NewInput(mode SendMode, appendNewline bool) *Input {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Prompt = ""

	i := &Input{
		textInput:    ti,
		appendNL:     appendNewline,
		historyIndex: -1,
	}
	i.setMode(mode)
	return i
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border, padding, prompt and its space
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd {
	return i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(v string) {
	i.textInput.SetValue(v)
}

func (i *Input) Mode() SendMode {
	return i.mode
}

func (i *Input) ToggleMode() {
	if i.mode == SendHex {
		i.setMode(SendASCII)
	} else {
		i.setMode(SendHex)
	}
}

func (i *Input) setMode(mode SendMode) {
	i.mode = mode
	if mode == SendHex {
		i.textInput.Placeholder = hexPlaceholder
	} else {
		i.textInput.Placeholder = asciiPlaceholder
	}
}

// Payload converts the current text to bytes in the active mode. ASCII
// lines get a trailing newline when the input was built with one.
func (i *Input) Payload() ([]byte, error) {
	text := i.textInput.Value()
	if i.mode == SendHex {
		return ParseHex(text)
	}
	if i.appendNL {
		text += "\n"
	}
	return []byte(text), nil
}

// Commit records the current text in history and clears the line.
func (i *Input) Commit() {
	text := strings.TrimSpace(i.textInput.Value())
	if text != "" && (len(i.history) == 0 || i.history[len(i.history)-1] != text) {
		i.history = append(i.history, text)
		if len(i.history) > historyLimit {
			i.history = i.history[1:]
		}
	}
	i.historyIndex = -1
	i.draft = ""
	i.textInput.SetValue("")
}

func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	if i.historyIndex == -1 {
		i.draft = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryDown() {
	if i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.draft)
	i.draft = ""
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

// View renders the line; outside insert mode it shows a hint instead.
func (i *Input) View(insert bool) string {
	prompt := lipgloss.NewStyle().Foreground(styles.Green).Bold(true).Render(">")
	if i.mode == SendHex {
		prompt = lipgloss.NewStyle().Foreground(styles.Yellow).Bold(true).Render("#")
	}

	var content string
	if insert {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		hint := lipgloss.NewStyle().Foreground(styles.Overlay0).Render("Press 'i' to enter insert mode")
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", hint)
	}

	style := styles.InputStyle.Width(max(i.width-4, 10))
	if insert {
		style = style.BorderForeground(styles.Green)
	}
	return style.Render(content)
}
