package ports

import "context"

// Notifier delivers a plain-text message to the operator's channel.
// A nil error means the message was accepted by the channel — callers
// persist state only after a successful send.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
