package sender

import (
	"context"
	"errors"
	"sync"

	"github.com/dealerops/notifykit/pkg/notify"
)

// ErrNoSender is returned when no sender is registered for a channel.
var ErrNoSender = errors.New("no sender registered for channel")

// Registry maps channels to their senders. Safe for concurrent use; both
// the primary send path and the retry scheduler dispatch through the same
// registry, which is what keeps their send logic from diverging.
type Registry struct {
	mu      sync.RWMutex
	senders map[notify.Channel]Sender
}

// NewRegistry creates a registry. Channel/sender pairs can be passed up
// front through Register afterwards.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[notify.Channel]Sender)}
}

// Register binds a sender to a channel, replacing any previous binding.
// Nil senders and invalid channels are ignored.
func (r *Registry) Register(ch notify.Channel, s Sender) {
	if s == nil || !ch.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[ch] = s
}

// Sender returns the sender bound to the channel.
func (r *Registry) Sender(ch notify.Channel) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	return s, ok
}

// Send dispatches a request to the channel's sender. A missing sender is a
// permanent error: retrying cannot conjure up a transport.
func (r *Registry) Send(ctx context.Context, req Request) (Result, error) {
	s, ok := r.Sender(req.Channel)
	if !ok {
		return Result{}, ErrNoSender
	}
	return s.Send(ctx, req)
}

// Channels lists the channels that currently have senders, in no
// particular order.
func (r *Registry) Channels() []notify.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]notify.Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}
