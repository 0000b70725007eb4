package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EmailPublisher sends notification e-mail requests to the worker.
type EmailPublisher interface {
	PublishEmail(ctx context.Context, payload EmailNotificationPayload) error
}

var _ EmailPublisher = (*RabbitEmailPublisher)(nil)

// RabbitEmailPublisher publishes persistent JSON messages to a durable queue
// through the default exchange.
type RabbitEmailPublisher struct {
	conn      *amqp.Connection
	queueName string
	logger    *zap.Logger
}

// NewRabbitEmailPublisher declares the queue once so that messages published
// before the worker starts are kept.
func NewRabbitEmailPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitEmailPublisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	if queueName == "" {
		queueName = DefaultEmailQueue
	}
	p := &RabbitEmailPublisher{
		conn:      conn,
		queueName: queueName,
		logger:    logger.Named("EmailPublisher").With(zap.String("queue", queueName)),
	}
	if err := p.declareQueue(); err != nil {
		return nil, fmt.Errorf("failed to verify queue %s on init: %w", queueName, err)
	}
	return p, nil
}

func (p *RabbitEmailPublisher) declareQueue() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (p *RabbitEmailPublisher) PublishEmail(ctx context.Context, payload EmailNotificationPayload) error {
	if payload.ID == uuid.Nil {
		payload.ID = uuid.New()
	}
	log := p.logger.With(zap.String("kind", string(payload.Kind)), zap.String("journeyID", payload.JourneyID.String()))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    payload.ID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish email notification: %w", err)
	}
	log.Info("Email notification published", zap.String("messageID", payload.ID.String()))
	return nil
}
