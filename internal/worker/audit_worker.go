package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/repository"
)

const auditConsumerTag = "audit_worker"

// errMalformedMessage marks deliveries that will never succeed and must not be requeued.
var errMalformedMessage = errors.New("malformed audit message")

// AuditWorker persists the audit feed published by the task service.
type AuditWorker struct {
	url            string
	queue          string
	audits         repository.ITaskAuditRepository
	logger         zerolog.Logger
	reconnectDelay time.Duration
}

func NewAuditWorker(url, queue string, audits repository.ITaskAuditRepository, logger zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		url:            url,
		queue:          queue,
		audits:         audits,
		logger:         logger.With().Str("component", "audit_worker").Logger(),
		reconnectDelay: 5 * time.Second,
	}
}

// Start consumes until ctx is cancelled, reconnecting after broker failures.
func (w *AuditWorker) Start(ctx context.Context) error {
	for {
		err := w.consume(ctx)
		if ctx.Err() != nil {
			w.logger.Info().Msg("audit worker stopped")
			return nil
		}
		w.logger.Error().Err(err).Dur("retry_in", w.reconnectDelay).Msg("audit consumer disconnected")

		select {
		case <-ctx.Done():
			w.logger.Info().Msg("audit worker stopped")
			return nil
		case <-time.After(w.reconnectDelay):
		}
	}
}

func (w *AuditWorker) consume(ctx context.Context) error {
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", w.queue, err)
	}
	if err := channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := channel.Consume(w.queue, auditConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", w.queue, err)
	}

	w.logger.Info().Str("queue", w.queue).Msg("audit worker consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.deliver(ctx, msg)
		}
	}
}

func (w *AuditWorker) deliver(ctx context.Context, msg amqp.Delivery) {
	err := w.handle(ctx, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errMalformedMessage):
		w.logger.Warn().Err(err).Msg("dropping audit message")
		_ = msg.Nack(false, false)
	default:
		w.logger.Error().Err(err).Msg("audit message requeued")
		_ = msg.Nack(false, true)
	}
}

// handle decodes one message body and stores it as an audit record.
func (w *AuditWorker) handle(ctx context.Context, body []byte) error {
	var msg entity.AuditMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if msg.EntityID == 0 || msg.Action == "" {
		return fmt.Errorf("%w: entity_id and action are required", errMalformedMessage)
	}

	audit, err := toTaskAudit(&msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	if err := w.audits.Create(ctx, audit); err != nil {
		return fmt.Errorf("save audit: %w", err)
	}

	w.logger.Debug().
		Str("action", string(audit.Action)).
		Int("task_id", audit.EntityID).
		Msg("audit saved")
	return nil
}

func toTaskAudit(msg *entity.AuditMessage) (*entity.TaskAudit, error) {
	oldValues, err := jsonText(msg.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := jsonText(msg.NewValues)
	if err != nil {
		return nil, err
	}
	changes, err := jsonText(msg.Changes)
	if err != nil {
		return nil, err
	}

	changedAt := msg.Timestamp
	if changedAt.IsZero() {
		changedAt = time.Now().UTC()
	}

	return &entity.TaskAudit{
		UserID:     msg.UserID,
		Action:     msg.Action,
		EntityType: "task",
		EntityID:   msg.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Changes:    changes,
		ChangedAt:  changedAt,
	}, nil
}

func jsonText(values map[string]any) (*string, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
