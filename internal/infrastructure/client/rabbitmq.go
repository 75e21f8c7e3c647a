package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

// AuditPublisher sends task change records to the audit feed.
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error
	Close() error
}

type RabbitMQClient struct {
	conn    *amqp.Connection
	mu      sync.Mutex
	channel *amqp.Channel
	queue   amqp.Queue
	logger  zerolog.Logger
}

var _ AuditPublisher = (*RabbitMQClient)(nil)

func NewRabbitMQClient(url, queueName string, logger zerolog.Logger) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: channel,
		queue:   queue,
		logger:  logger.With().Str("component", "audit_publisher").Logger(),
	}, nil
}

// PublishAuditMessage publishes a persistent JSON message. amqp channels are not safe
// for concurrent publishing, so calls are serialized.
func (c *RabbitMQClient) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal audit message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(
		ctx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    message.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("publish audit message: %w", err)
	}

	c.logger.Debug().
		Str("action", string(message.Action)).
		Int("task_id", message.EntityID).
		Msg("audit message published")
	return nil
}

func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// NoopAuditPublisher is used when no broker is configured.
type NoopAuditPublisher struct{}

var _ AuditPublisher = NoopAuditPublisher{}

func (NoopAuditPublisher) PublishAuditMessage(context.Context, *entity.AuditMessage) error {
	return nil
}

func (NoopAuditPublisher) Close() error { return nil }
