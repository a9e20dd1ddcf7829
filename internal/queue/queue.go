package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client is a thin RabbitMQ wrapper carrying the change-feed topology: one
// topic exchange for collection-change events and one queue the feed adapter
// consumes from.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

const (
	EventsExchange = "marketfin.events"
	FeedQueue      = "marketfin.feed"
)

// FeedRoutingKeys cover every collection the engine reads plus the
// settlement events it writes. The '#' wildcard matches multi-segment keys
// like 'orders.status.updated'.
var FeedRoutingKeys = []string{"orders.#", "restaurants.#", "partners.#", "settings.#", "settlements.#"}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// EnsureFeedTopology declares the exchange, the feed queue, and the bindings
// for every collection routing key.
func (c *Client) EnsureFeedTopology() error {
	if err := c.ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(FeedQueue, true, false, false, false, nil); err != nil {
		return err
	}
	for _, key := range FeedRoutingKeys {
		if err := c.ch.QueueBind(FeedQueue, key, EventsExchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

type HandlerFunc func(ctx context.Context, routingKey string, body []byte) error

// Consume delivers feed messages to handler until the channel closes.
// Failed deliveries are requeued up to maxRetries via an x-retry-count
// header, then dropped.
func (c *Client) Consume(queueName string, handler HandlerFunc, maxRetries int, retryDelay time.Duration) error {
	msgs, err := c.ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for msg := range msgs {
		ctx := context.Background()
		if err := handler(ctx, msg.RoutingKey, msg.Body); err == nil {
			_ = msg.Ack(false)
			continue
		}

		retries := retryCount(msg.Headers)
		if retries >= maxRetries {
			_ = msg.Nack(false, false)
			continue
		}

		headers := msg.Headers
		if headers == nil {
			headers = amqp.Table{}
		}
		headers["x-retry-count"] = retries + 1

		time.Sleep(retryDelay)
		_ = c.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
			Timestamp:   time.Now(),
		})
		_ = msg.Ack(false)
	}

	return errors.New("consumer closed")
}

func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
