//go:build linux

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"log/slog"

	"github.com/allbin/go-serialsession/host/bugst"
	"github.com/allbin/go-serialsession/host/termios"
)

const defaultBackend = "termios"

var backends = []string{"termios", "bugst"}

func newHost(name string, logger *slog.Logger) backend {
	if name == "bugst" {
		return bugst.New(bugst.WithLogger(logger))
	}
	return termios.New(termios.WithLogger(logger))
}
