// Package rabbit wraps one AMQP connection and channel with reconnect support.
package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat        = 10 * time.Second
	dialTimeout      = 5 * time.Second
	reconnectRetries = 5
)

var ErrNotConnected = errors.New("rabbitmq is not connected")

type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool // set by Close, never cleared
	dsn     string

	log logger.Logger
}

// New dials dsn and opens a channel.
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		dsn: dsn,
		log: log,
	}

	conn, ch, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.attach(conn, ch)

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(r.dsn, amqp.Config{
		Heartbeat: heartbeat,
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

// attach installs conn and ch and watches them for closure.
func (r *RabbitMQ) attach(conn *amqp.Connection, ch *amqp.Channel) {
	r.mu.Lock()
	r.conn, r.channel = conn, ch
	r.mu.Unlock()

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	go func() {
		ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)

		var closeErr *amqp.Error
		select {
		case closeErr = <-connClosed:
		case closeErr = <-chClosed:
		}

		if closeErr != nil {
			r.log.Error(ctx, "RabbitMQ connection closed with error", closeErr)
		} else {
			r.log.Debug(ctx, "RabbitMQ connection closed gracefully")
		}
	}()
}

// IsConnectionClosed reports whether a publish would need a reconnect.
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isClosed()
}

// isClosed expects r.mu to be held.
func (r *RabbitMQ) isClosed() bool {
	return r.conn == nil || r.channel == nil || r.conn.IsClosed() || r.channel.IsClosed()
}

// DeclareTopicExchange declares a durable topic exchange.
func (r *RabbitMQ) DeclareTopicExchange(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel == nil {
		return ErrNotConnected
	}
	if err := r.channel.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// Publish sends one message on the current channel.
func (r *RabbitMQ) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	r.mu.Lock()
	ch := r.channel
	r.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}
	return ch.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// Close closes the channel and the connection. Later calls do nothing.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ch, conn := r.channel, r.conn
	r.channel, r.conn = nil, nil
	r.mu.Unlock()

	if ch != nil {
		if err := closeWithCtxFunc(ctx, ch.Close); err != nil {
			if ctx.Err() != nil {
				r.log.Debug(ctx, "context cancelled while closing channel")
			} else {
				r.log.Error(ctx, "error closing channel", err)
			}
		}
	}

	if conn != nil {
		if err := closeWithCtxFunc(ctx, conn.Close); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// closeWithCtxFunc runs fn but stops waiting once ctx is done.
func closeWithCtxFunc(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureConnection reconnects with a growing delay when the connection is gone.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrNotConnected
	}
	if !r.isClosed() {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.log.Warn(ctx, "rabbit connection closed, reconnecting...")

	var err error
	for i := range reconnectRetries {
		var (
			conn *amqp.Connection
			ch   *amqp.Channel
		)
		if conn, ch, err = r.dial(); err == nil {
			r.attach(conn, ch)
			r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
			return nil
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
}
