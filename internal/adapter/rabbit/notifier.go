// Package rabbit publishes call lifecycle notifications to a topic exchange.
package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "passenger_topic"

	KeyCallAccepted  = "passenger.call.accepted"
	KeyTaxiMoved     = "passenger.taxi.moved"
	KeyCallCompleted = "passenger.call.completed"

	publishAttempts = 3
	publishBackoff  = 200 * time.Millisecond
	publishTimeout  = 2 * time.Second

	// DefaultBacklog is how many notifications may wait for the publisher.
	DefaultBacklog = 64
)

var (
	ErrNotifierClosed = errors.New("call notifier closed")
	errBacklogFull    = errors.New("notification backlog full")
)

// Broker is the part of pkg/rabbit the notifier needs.
type Broker interface {
	EnsureConnection(ctx context.Context) error
	Publish(ctx context.Context, exchange, key string, msg amqp091.Publishing) error
}

// CallEventMessage is the body of every published notification.
type CallEventMessage struct {
	Event     string          `json:"event"`
	Passenger string          `json:"passenger"`
	Taxi      models.TaxiInfo `json:"taxi"`
	Timestamp time.Time       `json:"timestamp"`
}

// CallNotifier forwards call lifecycle notifications to RabbitMQ. Notifications
// are queued and published by a background goroutine, so a slow or unreachable
// broker never holds up the caller. When the backlog is full the notification
// is dropped. Failures are logged and never reach the call machine.
type CallNotifier struct {
	broker    Broker
	exchange  string
	passenger func() string
	service   string

	mu     sync.Mutex
	closed bool
	events chan notification
	done   chan struct{}

	l logger.Logger
}

type notification struct {
	ctx context.Context
	key string
	msg CallEventMessage
}

// NewCallNotifier starts the publisher goroutine. Close stops it.
func NewCallNotifier(broker Broker, exchange string, passenger func() string, service string, backlog int, log logger.Logger) *CallNotifier {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	n := &CallNotifier{
		broker:    broker,
		exchange:  exchange,
		passenger: passenger,
		service:   service,
		events:    make(chan notification, backlog),
		done:      make(chan struct{}),
		l:         log,
	}
	go n.run()
	return n
}

func (n *CallNotifier) CallAccepted(ctx context.Context, taxi models.TaxiInfo) {
	n.enqueue(ctx, KeyCallAccepted, taxi)
}

func (n *CallNotifier) TaxiMoved(ctx context.Context, taxi models.TaxiInfo) {
	n.enqueue(ctx, KeyTaxiMoved, taxi)
}

func (n *CallNotifier) CallCompleted(ctx context.Context, taxi models.TaxiInfo) {
	n.enqueue(ctx, KeyCallCompleted, taxi)
}

// Close stops accepting notifications and waits until the backlog is published
// or ctx is done.
func (n *CallNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.events)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *CallNotifier) enqueue(ctx context.Context, key string, taxi models.TaxiInfo) {
	ctx = wrap.WithAction(context.WithoutCancel(ctx), "rabbitmq_publish_"+key)

	var passenger string
	if n.passenger != nil {
		passenger = n.passenger()
	}
	ev := notification{
		ctx: ctx,
		key: key,
		msg: CallEventMessage{
			Event:     key,
			Passenger: passenger,
			Taxi:      taxi,
			Timestamp: time.Now(),
		},
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		n.l.Warn(ctx, "call notification dropped", "routing_key", key, "reason", ErrNotifierClosed.Error())
		return
	}

	select {
	case n.events <- ev:
	default:
		metrics.RecordRabbitMQPublish(n.service, n.exchange, errBacklogFull)
		n.l.Warn(ctx, "call notification dropped", "routing_key", key, "reason", errBacklogFull.Error())
	}
}

func (n *CallNotifier) run() {
	defer close(n.done)

	for ev := range n.events {
		n.publish(ev)
	}
}

func (n *CallNotifier) publish(ev notification) {
	ctx, cancel := context.WithTimeout(ev.ctx, publishTimeout)
	defer cancel()

	err := n.send(ctx, ev.key, ev.msg)
	metrics.RecordRabbitMQPublish(n.service, n.exchange, err)
	if err != nil {
		n.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish call notification", err, "routing_key", ev.key)
		return
	}
	n.l.Debug(ctx, "call notification published", "routing_key", ev.key)
}

func (n *CallNotifier) send(ctx context.Context, key string, event CallEventMessage) error {
	if err := n.broker.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("ensure connection: %w", err))
	}

	body, err := json.Marshal(event)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	msg := amqp091.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Body:        body,
		Timestamp:   event.Timestamp,
	}

	return retry(ctx, publishAttempts, publishBackoff, func() error {
		if err := n.broker.Publish(ctx, n.exchange, key, msg); err != nil {
			return fmt.Errorf("failed to publish with context: %w", err)
		}
		return nil
	})
}
