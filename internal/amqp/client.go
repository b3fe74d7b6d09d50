// Package amqp publishes and consumes ledger events over RabbitMQ. The
// client reconnects lazily and guards publishing with a circuit breaker so a
// broker outage never blocks ledger mutations.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	dial         func(url string) (*amqp091.Connection, error)
	breaker      *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient connects and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := newClient(url, exchangeName, queueName, amqp091.Dial)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.channelLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(url, exchangeName, queueName string, dial func(string) (*amqp091.Connection, error)) *Client {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dial,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-publish",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// channelLocked returns the open channel, dialing and declaring topology
// when there is none. c.mu must be held.
func (c *Client) channelLocked() (*amqp091.Channel, error) {
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.resetLocked()

	conn, err := c.dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, ch
	return ch, nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key is the queue name on the direct exchange.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends ev as a persistent JSON message. It fails fast with
// gobreaker.ErrOpenState while the broker is considered down.
func (c *Client) Publish(ctx context.Context, ev *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.publish(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish %s: circuit breaker is open: %w", ev.Kind, err)
		}
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}

	slog.InfoContext(ctx, "Published ledger event",
		"kind", ev.Kind,
		"transfer_id", ev.TransferID,
		"reminder_id", ev.ReminderID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channelLocked()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if isConnectionError(err) {
		c.resetLocked()
	}
	return err
}

// Consume delivers events to handler until ctx is done, reconnecting with
// exponential backoff when the broker goes away. Undecodable messages are
// dropped; handler errors requeue the message.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, handler, func() { attempt = -1 })
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Event consumer disconnected, retrying", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *LedgerEvent) error, connected func()) error {
	c.mu.Lock()
	ch, err := c.channelLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				c.mu.Lock()
				c.resetLocked()
				c.mu.Unlock()
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *LedgerEvent) error) {
	ev, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable event", "error", err)
		d.Nack(false, false)
		return
	}
	if err := handler(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to handle event", "kind", ev.Kind, "error", err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
	slog.DebugContext(ctx, "Processed ledger event", "kind", ev.Kind)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "connection reset", "eof", "broken pipe", "closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
