// Package amqp forwards the in-process change feed to a RabbitMQ topic
// exchange so other services can follow Depot changes.
//
// Routing keys take the form "depot.<collection>.<op>", for example
// "depot.bookings.deleted".
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	rmq "github.com/rabbitmq/amqp091-go"

	"github.com/xraph/depot/changefeed"
)

// DefaultExchange is the exchange changes are published to.
const DefaultExchange = "depot.changes"

// Publisher sends one JSON message under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key, messageID string, v any) error
	Close() error
}

// RabbitPublisher publishes to a durable topic exchange.
type RabbitPublisher struct {
	conn     *rmq.Connection
	ch       *rmq.Channel
	exchange string
}

// Dial connects to url and declares exchange.
func Dial(url, exchange string) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := rmq.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishJSON marshals v and publishes it persistently.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, key, messageID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, rmq.Publishing{
		ContentType:  "application/json",
		DeliveryMode: rmq.Persistent,
		MessageId:    messageID,
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey returns the routing key a change is published under.
func RoutingKey(c changefeed.Change) string {
	return "depot." + string(c.Collection) + "." + string(c.Op)
}

// Forwarder copies every change from a feed to a Publisher.
type Forwarder struct {
	feed   *changefeed.Feed
	pub    Publisher
	logger *slog.Logger
}

// NewForwarder creates a forwarder. A nil logger means slog.Default().
func NewForwarder(feed *changefeed.Feed, pub Publisher, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{feed: feed, pub: pub, logger: logger}
}

// Run forwards until ctx is done or the feed closes. Publish failures are
// logged and the change is skipped.
func (f *Forwarder) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, col := range changefeed.Collections {
		ch, cancel := f.feed.Subscribe(col)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			f.pump(ctx, ch)
		}()
	}
	wg.Wait()
}

func (f *Forwarder) pump(ctx context.Context, ch <-chan changefeed.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			if err := f.pub.PublishJSON(ctx, RoutingKey(c), c.ID.String(), c); err != nil {
				f.logger.Warn("changefeed: forward failed",
					"collection", c.Collection,
					"op", c.Op,
					"record_id", c.RecordID,
					"error", err,
				)
			}
		}
	}
}
