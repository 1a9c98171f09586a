// Package progress is the per-user pub/sub channel carrying live
// pipeline notifications. Delivery is best-effort and at-most-once: a
// message published while nobody is subscribed is dropped. Durable job
// state lives in the broker and the document store, not here.
package progress

import "context"

// Broadcaster is the publish side of the channel.
type Broadcaster interface {
	// Publish sends the event to every current subscriber of the user's
	// channel and returns how many were reached.
	Publish(ctx context.Context, userID string, event Event) (int, error)
}

// Subscription is one live attachment to a user's channel.
type Subscription interface {
	// Messages yields inbound messages until the subscription closes.
	Messages() <-chan Message

	// Close detaches from the channel. Idempotent.
	Close() error
}

// Subscriber opens subscriptions; each SSE connection gets its own.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}
