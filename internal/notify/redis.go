package notify

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "tora:changes"

var _ Notifier = (*Redis)(nil)

// Redis fans changes out through a Redis pub/sub channel, so every process
// sharing the channel sees every other process's writes. A process also
// receives the changes it published itself.
type Redis struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	channel  string
	handlers handlers
	log      logrus.FieldLogger
	done     chan struct{}
}

// NewRedis connects to addr and starts listening on channel.
func NewRedis(ctx context.Context, addr, channel string, log logrus.FieldLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Protocol: 2,
	})
	return NewRedisWithClient(ctx, client, channel, log)
}

// NewRedisWithClient listens on channel using an existing client. Close closes the client.
func NewRedisWithClient(ctx context.Context, client *redis.Client, channel string, log logrus.FieldLogger) (*Redis, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed so no publish after this returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	r := &Redis{
		client:  client,
		pubsub:  pubsub,
		channel: channel,
		log:     log.WithField("channel", channel),
		done:    make(chan struct{}),
	}
	go r.listen()
	return r, nil
}

func (r *Redis) listen() {
	defer close(r.done)
	for msg := range r.pubsub.Channel() {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			r.log.WithError(err).Warn("dropping malformed change")
			continue
		}
		r.handlers.dispatch(c)
	}
}

func (r *Redis) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *Redis) Subscribe(h Handler) func() {
	return r.handlers.add(h)
}

// Close stops listening and closes the client.
func (r *Redis) Close() error {
	err := r.pubsub.Close()
	<-r.done
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
