package serialsession

import (
	"context"
	"errors"
	"sync"
)

// Registry tracks the ports this process is authorized to use and which
// one is selected. Enumeration against the host happens at most once per
// Registry: later calls return the cached list and never refresh it, even
// if authorization was revoked externally. Create one Registry per process.
type Registry struct {
	host Host

	mu         sync.Mutex
	enumerated bool
	known      []Handle
	selected   Handle
	hasSel     bool
	onAttach   func(Handle)
	onDetach   func(Handle)
}

// NewRegistry creates an empty registry backed by host.
func NewRegistry(host Host) *Registry {
	return &Registry{host: host}
}

// Enumerate queries the host for previously authorized ports on the first
// call and returns the known ports. A failed first query may be retried.
func (r *Registry) Enumerate(ctx context.Context) ([]Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enumerated {
		return r.knownLocked(), nil
	}

	handles, err := r.host.ListAuthorized(ctx)
	if err != nil {
		return nil, deviceError("enumerate", "", err)
	}
	for _, h := range handles {
		r.addLocked(h)
	}
	r.enumerated = true
	return r.knownLocked(), nil
}

// RequestAuthorization asks the host for a new port matching filter. The
// granted port becomes the selection and is added to the known ports.
func (r *Registry) RequestAuthorization(ctx context.Context, filter Filter) (Handle, error) {
	h, err := r.host.RequestPort(ctx, filter)
	if err != nil {
		if errors.Is(err, ErrAuthorizationDenied) {
			return "", err
		}
		return "", deviceError("request", "", err)
	}

	r.mu.Lock()
	r.addLocked(h)
	r.selected, r.hasSel = h, true
	r.mu.Unlock()
	return h, nil
}

// Select makes h the selected port. Membership in Known is not checked.
func (r *Registry) Select(h Handle) {
	r.mu.Lock()
	r.selected, r.hasSel = h, true
	r.mu.Unlock()
}

// Selected returns the selected port, if any.
func (r *Registry) Selected() (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, r.hasSel
}

// Known returns the known ports in discovery order.
func (r *Registry) Known() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.knownLocked()
}

// OnAttach registers the callback invoked for attach notifications.
func (r *Registry) OnAttach(fn func(Handle)) {
	r.mu.Lock()
	r.onAttach = fn
	r.mu.Unlock()
}

// OnDetach registers the callback invoked for detach notifications.
func (r *Registry) OnDetach(fn func(Handle)) {
	r.mu.Lock()
	r.onDetach = fn
	r.mu.Unlock()
}

// Notify forwards a device event to the registered callback. Known and
// Selected are left untouched, a detached port stays selected.
func (r *Registry) Notify(ev DeviceEvent) {
	r.mu.Lock()
	var fn func(Handle)
	switch ev.Kind {
	case DeviceAttached:
		fn = r.onAttach
	case DeviceDetached:
		fn = r.onDetach
	}
	r.mu.Unlock()

	if fn != nil {
		fn(ev.Handle)
	}
}

func (r *Registry) addLocked(h Handle) {
	for _, k := range r.known {
		if k == h {
			return
		}
	}
	r.known = append(r.known, h)
}

func (r *Registry) knownLocked() []Handle {
	out := make([]Handle, len(r.known))
	copy(out, r.known)
	return out
}
