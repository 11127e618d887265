package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"heri-science-api/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// channelPublisher is the part of *amqp.Channel the observer needs
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPObserver publishes every event as JSON to a topic exchange. The
// routing key is "processing.<event type>".
type AMQPObserver struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channelPublisher
	exchange string
}

// NewAMQPObserver dials url and declares a durable topic exchange
func NewAMQPObserver(url, exchange string) (*AMQPObserver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQPObserver{conn: conn, channel: ch, exchange: exchange}, nil
}

// OnEvent publishes the event. Failures are logged and dropped.
func (o *AMQPObserver) OnEvent(ctx context.Context, event ProcessingEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("Failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.RequestID,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
	}

	o.mu.Lock()
	err = o.channel.PublishWithContext(ctx, o.exchange, RoutingKey(event.Type), false, false, msg)
	o.mu.Unlock()

	if err != nil {
		logger.WithFields(logrus.Fields{
			"exchange":   o.exchange,
			"event_type": event.Type,
			"error":      err.Error(),
		}).Warn("Failed to publish event")
	}
}

// GetObserverName returns the observer name
func (o *AMQPObserver) GetObserverName() string {
	return "amqp_observer"
}

// Close closes the connection, which also closes the channel
func (o *AMQPObserver) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

// RoutingKey returns the topic key an event type is published under
func RoutingKey(t EventType) string {
	return "processing." + string(t)
}
