package progressredis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/robypag/scentsmith/pkg/errx"
	"github.com/robypag/scentsmith/pkg/logx"
	"github.com/robypag/scentsmith/pkg/progress"
)

var progressErrors = errx.NewRegistry("PROGRESS_REDIS")

var (
	ErrPublish   = progressErrors.Register("PUBLISH", errx.TypeExternal, 500, "Redis publish failed")
	ErrSubscribe = progressErrors.Register("SUBSCRIBE", errx.TypeExternal, 500, "Redis subscribe failed")
	ErrMarshal   = progressErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal progress message")
)

// Broadcaster publishes progress messages over Redis pub/sub. Redis
// reports the receiver count natively, which is exactly the contract.
type Broadcaster struct {
	rdb *redis.Client
}

// NewBroadcaster creates the publish side of the progress channel.
func NewBroadcaster(rdb *redis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

// Publish wraps the event with its coarse status and fires it at the
// user's channel. Zero subscribers means the message is gone.
func (b *Broadcaster) Publish(ctx context.Context, userID string, event progress.Event) (int, error) {
	msg := progress.NewMessage(event)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, progressErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", event.JobID)
	}

	n, err := b.rdb.Publish(ctx, progress.ChannelFor(userID), data).Result()
	if err != nil {
		return 0, progressErrors.NewWithCause(ErrPublish, err).WithDetail("job_id", event.JobID)
	}

	return int(n), nil
}

// Subscriber opens one dedicated pub/sub connection per subscription,
// so closing one SSE client never disturbs another.
type Subscriber struct {
	rdb *redis.Client
}

// NewSubscriber creates the subscribe side of the progress channel.
func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb}
}

// Subscribe attaches to the user's channel and starts decoding inbound
// messages. Undecodable payloads are logged and skipped.
func (s *Subscriber) Subscribe(ctx context.Context, userID string) (progress.Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, progress.ChannelFor(userID))

	// Force the SUBSCRIBE round-trip so a dead broker fails fast here
	// instead of on first read.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, progressErrors.NewWithCause(ErrSubscribe, err).WithDetail("user_id", userID)
	}

	sub := &subscription{
		pubsub: pubsub,
		out:    make(chan progress.Message),
		done:   make(chan struct{}),
	}
	go sub.pump()

	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	out    chan progress.Message
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) pump() {
	s.forward(s.pubsub.Channel())
}

// forward decodes messages until in closes or the subscription is
// closed. The done select keeps the goroutine from blocking forever on
// a consumer that already left with a message in flight.
func (s *subscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for m := range in {
		var msg progress.Message
		if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
			logx.WithError(err).Warn("progress: dropping undecodable message")
			continue
		}
		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Messages() <-chan progress.Message { return s.out }

// Close detaches from the channel and releases the pump. Safe to call
// from any exit path.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
