//go:build !linux

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"log/slog"

	"github.com/allbin/go-serialsession/host/bugst"
)

const defaultBackend = "bugst"

var backends = []string{"bugst"}

func newHost(name string, logger *slog.Logger) backend {
	return bugst.New(bugst.WithLogger(logger))
}
