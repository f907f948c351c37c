package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// bridgeQueueSize bounds how many events may wait for the broker before
// new ones are dropped
const bridgeQueueSize = 256

// bridgeEnvelope is the wire form of an event published to the broker
type bridgeEnvelope struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Event    Event  `json:"event"`
	SentAt   int64  `json:"sent_at"`
}

// EventBridge mirrors realtime notifications onto a RabbitMQ topic
// exchange so other CRM services can react to messaging activity. It is
// an optional sink: the server runs without it when no broker URL is
// configured. Publishing happens on a background goroutine, so a slow
// or stalled broker never holds up the ingest or send paths; events
// that arrive while the queue is full are dropped, same at-most-once
// stance as the in-process hub.
type EventBridge struct {
	conn     *amqp091.Connection
	exchange string

	queue   chan bridgeEnvelope
	stop    chan struct{}
	done    chan struct{}
	publish func(bridgeEnvelope)

	closeOnce sync.Once
}

// NewEventBridge connects to the broker, declares the topic exchange and
// starts the publisher goroutine
func NewEventBridge(url, exchange string) (*EventBridge, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	b := &EventBridge{
		conn:     conn,
		exchange: exchange,
		queue:    make(chan bridgeEnvelope, bridgeQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	b.publish = b.publishAMQP
	go b.run()
	return b, nil
}

// Notify enqueues the event for publishing with routing key
// "messaging.<type>". It never blocks; when the broker cannot keep up
// the event is dropped with a warning.
func (b *EventBridge) Notify(tenantID string, event Event) {
	env := bridgeEnvelope{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Event:    event,
		SentAt:   time.Now().Unix(),
	}

	select {
	case b.queue <- env:
	default:
		logger.Warn("Event bridge queue full, dropping event",
			zap.String("tenant_id", tenantID),
			zap.String("event_type", event.Type),
		)
	}
}

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case env := <-b.queue:
			b.publish(env)
		case <-b.stop:
			return
		}
	}
}

func (b *EventBridge) publishAMQP(env bridgeEnvelope) {
	ch, err := b.conn.Channel()
	if err != nil {
		logger.Error("Failed to open channel for event publish", zap.Error(err))
		return
	}
	defer ch.Close()

	body, err := json.Marshal(env)
	if err != nil {
		logger.Error("Failed to marshal event envelope", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx, b.exchange, "messaging."+env.Event.Type, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		logger.Error("Failed to publish event",
			zap.String("tenant_id", env.TenantID),
			zap.String("event_type", env.Event.Type),
			zap.Error(err),
		)
	}
}

// Close stops the publisher goroutine and shuts down the broker
// connection. Events still waiting in the queue are discarded.
func (b *EventBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
		if b.conn != nil {
			err = b.conn.Close()
		}
	})
	return err
}
