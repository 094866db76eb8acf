package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/MonkyMars/gecho"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelPool lends AMQP channels on one connection. The connection is
// redialled when the broker drops it and dead channels are reopened on demand.
type ChannelPool struct {
	url       string
	queueName string
	logger    *gecho.Logger

	connMu sync.Mutex
	conn   *amqp.Connection

	slots *slotPool[*amqp.Channel]
}

// NewChannelPool dials the broker and declares the queue once, so a
// misconfigured broker fails at startup rather than on the first order.
func NewChannelPool(url, queueName string, size int, logger *gecho.Logger) (*ChannelPool, error) {
	pool := &ChannelPool{url: url, queueName: queueName, logger: logger}
	pool.slots = newSlotPool(size, pool.createChannel,
		func(ch *amqp.Channel) bool { return !ch.IsClosed() },
		func(ch *amqp.Channel) { _ = ch.Close() },
	)

	ch, err := pool.Get(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	pool.Put(ch)

	logger.Info("Created RabbitMQ channel pool", gecho.Field("size", cap(pool.slots.slots)), gecho.Field("queue", queueName))
	return pool, nil
}

// connection returns the live connection, dialling a new one when needed
func (p *ChannelPool) connection() (*amqp.Connection, error) {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	go p.watch(conn)
	return conn, nil
}

// watch logs a broker side close and forgets the connection so the next
// channel request redials
func (p *ChannelPool) watch(conn *amqp.Connection) {
	amqpErr, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok {
		return // closed by us
	}
	p.logger.Warn("RabbitMQ connection lost, will reconnect on next publish", gecho.Field("error", amqpErr))

	p.connMu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.connMu.Unlock()
}

// createChannel opens a channel and declares the durable queue on it
func (p *ChannelPool) createChannel() (*amqp.Channel, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return ch, nil
}

// Get waits for a free channel until ctx is done
func (p *ChannelPool) Get(ctx context.Context) (*amqp.Channel, error) {
	return p.slots.get(ctx)
}

// Put hands back a channel taken with Get. Closed channels are dropped and
// replaced on a later Get.
func (p *ChannelPool) Put(ch *amqp.Channel) {
	p.slots.put(ch)
}

func (p *ChannelPool) Close() {
	p.slots.close()

	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.logger.Info("Closed RabbitMQ channel pool")
}
