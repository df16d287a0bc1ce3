package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/tui/components"
	"github.com/allbin/go-serialsession/internal/tui/keys"
	"github.com/allbin/go-serialsession/internal/tui/styles"
)

// shutdownTimeout bounds how long Shutdown waits for the read loop.
const shutdownTimeout = 2 * time.Second

type readingMsg struct {
	loop *serialsession.ReadLoop
}

type loopEndedMsg struct {
	loop *serialsession.ReadLoop
	err  error
}

type errMsg struct {
	err error
}

type clockMsg time.Time

// Options tune a SessionModel.
type Options struct {
	// Interactive adds the send line (connect); otherwise the view only
	// listens.
	Interactive   bool
	Display       components.DisplayMode
	SendMode      components.SendMode
	AppendNewline bool
	WriteTimeout  time.Duration
}

// SessionModel is the bubbletea model for the listen and connect views. It
// opens the session on Init, keeps a read loop running and shows data plus
// live control signals.
type SessionModel struct {
	session  *serialsession.Session
	notifier *Notifier
	opts     Options

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys

	ready  bool
	insert bool
	paused bool
	loop   *serialsession.ReadLoop
	now    time.Time
}

// NewSessionModel builds the model. The session must have been created
// with notifier's Signals and State as handlers.
func NewSessionModel(session *serialsession.Session, notifier *Notifier, port string, opts Options) *SessionModel {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	m := &SessionModel{
		session:   session,
		notifier:  notifier,
		opts:      opts,
		terminal:  components.NewTerminal(80, 20, opts.Display),
		statusBar: components.NewStatusBar(port, session.Config()),
		help:      help.New(),
		keys:      keys.NewConnectKeys(),
		now:       time.Now(),
	}
	if opts.Interactive {
		m.input = components.NewInput(opts.SendMode, opts.AppendNewline)
	}
	return m
}

func (m *SessionModel) Init() tea.Cmd {
	return tea.Batch(m.openCmd(), tickClock())
}

// Shutdown stops reading and closes the session. Call it after the
// program has exited.
func (m *SessionModel) Shutdown() error {
	m.notifier.Attach(nil)
	_ = m.session.StopReading()

	// The deadline also bounds a write stalled by flow control.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for {
		err := m.session.CloseContext(ctx)
		switch {
		case err == nil, errors.Is(err, serialsession.ErrNotOpen):
			return nil
		case !errors.Is(err, serialsession.ErrReadLocked) || ctx.Err() != nil:
			return err
		}
		// A loop started just before quit may not have been seen yet.
		_ = m.session.StopReading()
		time.Sleep(10 * time.Millisecond)
	}
}

func (m *SessionModel) openCmd() tea.Cmd {
	s, n := m.session, m.notifier
	return func() tea.Msg {
		if err := s.Open(context.Background()); err != nil {
			return errMsg{err}
		}
		return startReading(s, n)
	}
}

func (m *SessionModel) startCmd() tea.Cmd {
	s, n := m.session, m.notifier
	return func() tea.Msg {
		return startReading(s, n)
	}
}

func startReading(s *serialsession.Session, n *Notifier) tea.Msg {
	loop, err := s.StartReading(context.Background(), n.Data)
	if err != nil {
		return errMsg{err}
	}
	return readingMsg{loop}
}

func waitLoop(loop *serialsession.ReadLoop) tea.Cmd {
	return func() tea.Msg {
		return loopEndedMsg{loop: loop, err: loop.Wait()}
	}
}

func (m *SessionModel) stopCmd() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		if err := s.StopReading(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *SessionModel) writeCmd(payload []byte) tea.Cmd {
	s, timeout := m.session, m.opts.WriteTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.Write(ctx, payload)
		return components.DataMsg{Timestamp: time.Now(), Data: payload, Dir: components.TX, Err: err}
	}
}

func tickClock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func (m *SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, m.terminal.Update(msg)

	case clockMsg:
		m.now = time.Time(msg)
		return m, tickClock()

	case StateMsg:
		m.statusBar.SetState(msg.State)

	case SignalsMsg:
		m.statusBar.SetSignals(msg.Inputs, m.session.OutputSignals())

	case readingMsg:
		m.loop = msg.loop
		m.paused = false
		m.statusBar.SetStatus("Listening", nil)
		return m, waitLoop(msg.loop)

	case loopEndedMsg:
		if msg.loop == m.loop {
			m.loop = nil
		}
		switch {
		case msg.err != nil:
			m.statusBar.SetStatus("Read failed", msg.err)
		case m.paused:
			m.statusBar.SetStatus("Paused", nil)
		default:
			m.statusBar.SetStatus("End of data", nil)
		}

	case errMsg:
		m.statusBar.SetStatus(fmt.Sprintf("Error: %v", msg.err), msg.err)

	case components.DataMsg:
		if !m.ready {
			m.terminal.SetSize(80, 20)
			m.ready = true
		}
		m.terminal.Add(msg)

	case tea.KeyMsg:
		if m.insert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}

	return m, nil
}

func (m *SessionModel) resize(width, height int) {
	// status bar plus the content border
	reserved := 2
	if m.input != nil {
		reserved += 3
		m.input.SetWidth(width)
	}
	m.terminal.SetSize(width, max(height-reserved, 1))
	m.statusBar.SetWidth(width)
	m.ready = true
}

func (m *SessionModel) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.Formatter().ToggleHex()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.Formatter().ToggleASCII()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleTimestamps):
		m.terminal.Formatter().ToggleTimestamps()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleDTR):
		m.session.SetDTR(!m.session.OutputSignals().DataTerminalReady)
		m.statusBar.SetSignals(m.session.Signals(), m.session.OutputSignals())

	case key.Matches(msg, m.keys.ToggleRTS):
		m.session.SetRTS(!m.session.OutputSignals().RequestToSend)
		m.statusBar.SetSignals(m.session.Signals(), m.session.OutputSignals())

	case key.Matches(msg, m.keys.ToggleBreak):
		m.session.SetBreak(!m.session.OutputSignals().Break)
		m.statusBar.SetSignals(m.session.Signals(), m.session.OutputSignals())

	case key.Matches(msg, m.keys.Pause):
		return m.togglePause()

	case m.input != nil && key.Matches(msg, m.keys.InsertMode):
		m.insert = true
		return m.input.Focus()
	}
	return nil
}

func (m *SessionModel) togglePause() tea.Cmd {
	switch {
	case m.loop != nil && !m.paused:
		m.paused = true
		m.statusBar.SetStatus("Pausing...", nil)
		return m.stopCmd()
	case m.loop == nil && m.session.State() == serialsession.StateOpen:
		return m.startCmd()
	}
	return nil
}

func (m *SessionModel) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return tea.Quit

	case key.Matches(msg, m.keys.Escape):
		m.insert = false
		m.input.Blur()

	case key.Matches(msg, m.keys.Enter):
		payload, err := m.input.Payload()
		if err != nil {
			m.terminal.Add(components.DataMsg{Timestamp: time.Now(), Dir: components.TX, Err: err})
			return nil
		}
		if len(payload) == 0 {
			return nil
		}
		m.input.Commit()
		return m.writeCmd(payload)

	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleMode()

	case key.Matches(msg, m.keys.HistoryUp):
		m.input.HistoryUp()

	case key.Matches(msg, m.keys.HistoryDown):
		m.input.HistoryDown()

	default:
		return m.input.Update(msg)
	}
	return nil
}

func (m *SessionModel) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}

	mode := "NORMAL"
	switch {
	case m.insert:
		mode = "INSERT"
	case m.paused:
		mode = "PAUSED"
	}
	m.statusBar.SetWidth(m.terminal.Width())

	sections := []string{styles.ContentBorderStyle.Render(content)}
	if m.help.ShowAll {
		var keyMap help.KeyMap = m.keys.TerminalKeys
		if m.input != nil {
			keyMap = m.keys
		}
		sections = append(sections, styles.HelpStyle.Render(m.help.View(keyMap)))
	}
	if m.input != nil {
		sections = append(sections, m.input.View(m.insert))
	}
	sections = append(sections, m.statusBar.View(mode, m.now.Format("15:04:05")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
