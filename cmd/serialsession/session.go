/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	serialsession "github.com/allbin/go-serialsession"
)

// backend is what every host implementation offers the CLI.
type backend interface {
	serialsession.Host
	serialsession.EventSource
}

// newSession builds a closed session for port using the configured backend
// and serial settings. opts are applied after the defaults.
func newSession(port string, log *slog.Logger, opts ...serialsession.SessionOption) (*serialsession.Session, error) {
	host := newHost(cfg.Backend, log)
	registry := serialsession.NewRegistry(host)
	registry.Select(serialsession.Handle(port))

	store := serialsession.NewConfigStore()
	if err := store.Update(cfg.Serial.options()...); err != nil {
		return nil, err
	}

	base := []serialsession.SessionOption{
		serialsession.WithLogger(log),
		serialsession.WithConfigStore(store),
		serialsession.WithPollInterval(cfg.PollInterval),
	}
	return serialsession.NewSession(host, registry, append(base, opts...)...), nil
}

// openSession is newSession followed by Open.
func openSession(ctx context.Context, port string, opts ...serialsession.SessionOption) (*serialsession.Session, error) {
	s, err := newSession(port, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// inventory is a backend with a registry and an unselected session, for
// commands that enumerate or describe ports without opening one.
type inventory struct {
	host     backend
	registry *serialsession.Registry
	session  *serialsession.Session
}

func newInventory(log *slog.Logger) *inventory {
	host := newHost(cfg.Backend, log)
	registry := serialsession.NewRegistry(host)
	return &inventory{
		host:     host,
		registry: registry,
		session:  serialsession.NewSession(host, registry, serialsession.WithLogger(log)),
	}
}

// interruptContext is cancelled on Ctrl+C or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
