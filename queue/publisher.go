package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"perfumery_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventOrderCreated = "order.created"

	publishTimeout = 5 * time.Second
)

type Publisher struct {
	pool       *ChannelPool
	exchange   string
	routingKey string
	logger     *gecho.Logger
}

func NewPublisher(pool *ChannelPool, cfg *structs.QueueConfig, logger *gecho.Logger) *Publisher {
	return &Publisher{
		pool:       pool,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}
}

// PublishOrderCreated sends the order.created event as a persistent JSON message
func (p *Publisher) PublishOrderCreated(ctx context.Context, event *structs.OrderCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.publish(ctx, EventOrderCreated, event.OrderID.String(), body)
}

func (p *Publisher) publish(ctx context.Context, eventType, messageID string, body []byte) error {
	// bounds both the wait for a channel and the publish itself
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.Put(ch)

	err = ch.PublishWithContext(ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         eventType,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug("Published event", gecho.Field("type", eventType), gecho.Field("message_id", messageID))
	return nil
}

func (p *Publisher) Close() {
	p.pool.Close()
}
