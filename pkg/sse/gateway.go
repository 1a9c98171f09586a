// Package sse streams live pipeline progress to browsers over
// server-sent events. Each accepted connection is fully independent: it
// owns a dedicated broker subscription and shares no state with other
// connections.
package sse

import (
	"bufio"
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/robypag/scentsmith/pkg/iam/auth"
	"github.com/robypag/scentsmith/pkg/logx"
	"github.com/robypag/scentsmith/pkg/progress"
)

// Gateway fans progress messages out to connected clients.
type Gateway struct {
	subscriber progress.Subscriber
	heartbeat  time.Duration
	log        *logx.Logger
}

// NewGateway creates a gateway. heartbeat bounds how long a connection
// stays silent.
func NewGateway(subscriber progress.Subscriber, heartbeat time.Duration, log *logx.Logger) *Gateway {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Gateway{
		subscriber: subscriber,
		heartbeat:  heartbeat,
		log:        log,
	}
}

// Handler serves GET /events. The caller must already be resolved to an
// internal user by the auth middleware; the subscription is opened
// before the response is committed so setup failures still surface as
// status codes.
func (g *Gateway) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := auth.UserFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		// The subscription outlives this handler; it is scoped to the
		// connection and released by the stream's cleanup.
		sub, err := g.subscriber.Subscribe(context.Background(), user.ID)
		if err != nil {
			g.log.WithError(err).WithField("user_id", user.ID).Error("progress subscribe failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not open event stream",
			})
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		userID := user.ID
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			g.stream(userID, sub, w)
		}))
		return nil
	}
}

// stream pumps frames until the client disconnects or the subscription
// drops. Cleanup runs exactly once no matter which exit path fires.
func (g *Gateway) stream(userID string, sub progress.Subscription, w *bufio.Writer) {
	log := g.log.WithField("user_id", userID)

	ticker := time.NewTicker(g.heartbeat)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ticker.Stop()
			if err := sub.Close(); err != nil {
				log.WithError(err).Warn("progress unsubscribe failed")
			}
			log.Debug("event stream closed")
		})
	}
	defer cleanup()

	if err := writeFrame(w, newConnectedFrame()); err != nil {
		return
	}
	log.Debug("event stream opened")

	for {
		select {
		case msg, open := <-sub.Messages():
			if !open {
				return
			}
			if err := writeFrame(w, newJobProgressFrame(msg)); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeFrame(w, newHeartbeatFrame()); err != nil {
				return
			}
		}
	}
}
