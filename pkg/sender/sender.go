package sender

import (
	"context"

	"github.com/dealerops/notifykit/pkg/notify"
)

// Request is the channel-agnostic send order. Rendering happened upstream;
// senders receive final content and never build provider payloads here.
type Request struct {
	NotificationID string
	UserID         string
	DealerID       int64
	Channel        notify.Channel
	Title          string
	Body           string
	Metadata       map[string]any
}

// Result is the outcome reported by a channel sender.
type Result struct {
	Success           bool
	ProviderMessageID string
	StatusCode        int
	Err               string
}

// Sender is the uniform contract every channel implementation satisfies.
// The transport mechanics (SMS gateways, SMTP, push services) live behind
// this interface, outside the decision core. A returned error means the
// attempt failed transiently and may be retried; a permanent provider
// rejection is reported through Result with Success=false and no error.
type Sender interface {
	Send(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to the Sender interface.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Send(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// NoOpSender accepts every request without doing anything. Useful for
// testing and for channels a deployment has not wired up yet.
type NoOpSender struct{}

func (NoOpSender) Send(ctx context.Context, req Request) (Result, error) {
	return Result{Success: true}, nil
}
