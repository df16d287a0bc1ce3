/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	tea "github.com/charmbracelet/bubbletea"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/tui/components"
	"github.com/allbin/go-serialsession/internal/tui/models"
)

// displayMode maps the shared display flags onto a terminal display mode.
func displayMode(noTimestamps, raw, hexOnly bool) components.DisplayMode {
	mode := components.DefaultDisplayMode
	if noTimestamps {
		mode.ShowTimestamps = false
	}
	if raw {
		mode = components.DisplayMode{ShowASCII: true}
	}
	if hexOnly {
		mode.ShowASCII = false
		mode.ShowHex = true
	}
	return mode
}

// runSessionTUI runs the session view until the user quits. Session
// callbacks reach the program through a notifier attached once the
// program exists and detached again before shutdown.
func runSessionTUI(portPath string, opts models.Options) error {
	log := screenLogger()
	notifier := &models.Notifier{}

	session, err := newSession(portPath, log,
		serialsession.WithSignalHandler(notifier.Signals),
		serialsession.WithStateHandler(notifier.State),
	)
	if err != nil {
		return err
	}

	m := models.NewSessionModel(session, notifier, portPath, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	notifier.Attach(p.Send)

	_, runErr := p.Run()
	if err := m.Shutdown(); err != nil {
		log.Warn("session shutdown failed", "port", portPath, "error", err)
	}
	return runErr
}
