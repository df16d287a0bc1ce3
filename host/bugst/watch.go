package bugst

import (
	"context"

	serialsession "github.com/allbin/go-serialsession"
)

// Watch rescans the port list every scan interval and reports ports that
// appeared or vanished since the previous scan. The first scan sets the
// baseline and reports nothing.
func (h *Host) Watch(ctx context.Context) (<-chan serialsession.DeviceEvent, error) {
	current, err := h.scan()
	if err != nil {
		return nil, err
	}

	ticker := h.clock.Ticker(h.scanInterval)
	out := make(chan serialsession.DeviceEvent)

	go func() {
		defer close(out)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			next, err := h.scan()
			if err != nil {
				h.logger.Warn("serial port rescan failed", "error", err)
				continue
			}

			for _, ev := range diffPorts(current, next) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			current = next
		}
	}()
	return out, nil
}

func (h *Host) scan() ([]serialsession.Handle, error) {
	return h.ListAuthorized(context.Background())
}

// diffPorts returns detach events for ports gone from next followed by
// attach events for new ports, each in list order.
func diffPorts(prev, next []serialsession.Handle) []serialsession.DeviceEvent {
	inPrev := make(map[serialsession.Handle]bool, len(prev))
	for _, h := range prev {
		inPrev[h] = true
	}
	inNext := make(map[serialsession.Handle]bool, len(next))
	for _, h := range next {
		inNext[h] = true
	}

	var events []serialsession.DeviceEvent
	for _, h := range prev {
		if !inNext[h] {
			events = append(events, serialsession.DeviceEvent{Kind: serialsession.DeviceDetached, Handle: h})
		}
	}
	for _, h := range next {
		if !inPrev[h] {
			events = append(events, serialsession.DeviceEvent{Kind: serialsession.DeviceAttached, Handle: h})
		}
	}
	return events
}
