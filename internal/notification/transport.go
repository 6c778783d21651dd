package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Publisher is the bridge entry point used by transports.
type Publisher interface {
	Publish(ctx context.Context, origin Origin, raw []byte) (Event, error)
}

// SubscribeNATS feeds messages on subject into p until ctx is done. The
// origin comes from the "Origin" header when present.
func SubscribeNATS(ctx context.Context, nc *nats.Conn, subject string, p Publisher) error {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		origin := OriginForeground
		if m.Header != nil {
			origin = ParseOrigin(m.Header.Get("Origin"))
		}
		if _, err := p.Publish(ctx, origin, m.Data); err != nil && !errors.Is(err, ErrDuplicate) {
			log.Printf("Error handling NATS push on %s: %v", m.Subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject %s: %w", subject, err)
	}
	log.Printf("Subscribed to NATS subject: %s", subject)

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Printf("Failed to unsubscribe from %s: %v", subject, err)
		}
	}()
	return nil
}

// SubscribeRedis feeds messages published on channel into p until ctx is done.
func SubscribeRedis(ctx context.Context, client *redis.Client, channel string, p Publisher) error {
	pubsub := client.Subscribe(ctx, channel)

	// Wait for confirmation of subscription
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to redis channel %s: %w", channel, err)
	}
	log.Printf("Subscribed to redis channel: %s", channel)

	msgChan := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					return
				}
				if _, err := p.Publish(ctx, OriginForeground, []byte(msg.Payload)); err != nil && !errors.Is(err, ErrDuplicate) {
					log.Printf("Error handling redis push on %s: %v", msg.Channel, err)
				}
			}
		}
	}()
	return nil
}
