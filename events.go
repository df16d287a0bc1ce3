package serialsession

import (
	"context"
	"log/slog"
)

// EventBridge forwards device attach/detach events from an EventSource to
// a Registry. Events are relayed as-is and never change registry state.
type EventBridge struct {
	source   EventSource
	registry *Registry
	logger   *slog.Logger
}

// NewEventBridge creates a bridge. A nil logger discards output.
func NewEventBridge(source EventSource, registry *Registry, logger *slog.Logger) *EventBridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EventBridge{source: source, registry: registry, logger: logger}
}

// Run relays events until ctx is done or the source closes its channel.
func (b *EventBridge) Run(ctx context.Context) error {
	events, err := b.source.Watch(ctx)
	if err != nil {
		return deviceError("watch", "", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			b.logger.Debug("device event", "kind", ev.Kind.String(), "port", ev.Handle)
			b.registry.Notify(ev)
		}
	}
}
