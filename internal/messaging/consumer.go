package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrPermanent marks a send failure that retrying will not fix.
var ErrPermanent = errors.New("permanent delivery failure")

// EmailSender renders and delivers one notification e-mail.
type EmailSender interface {
	SendEmail(ctx context.Context, payload EmailNotificationPayload) error
}

// Acknowledger is the part of amqp.Delivery the processor needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Message is one delivery as seen by the Processor.
type Message struct {
	Body        []byte
	DeliveryTag uint64
	Redelivered bool
	Ack         Acknowledger
}

func messageFromDelivery(d amqp.Delivery) Message {
	return Message{Body: d.Body, DeliveryTag: d.DeliveryTag, Redelivered: d.Redelivered, Ack: d}
}

type Consumer struct {
	conn        *amqp.Connection
	logger      *zap.Logger
	queueName   string
	concurrency int
	processor   *Processor
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewConsumer(conn *amqp.Connection, queueName string, concurrency int, processor *Processor, logger *zap.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueName == "" {
		queueName = DefaultEmailQueue
	}
	return &Consumer{
		conn:        conn,
		logger:      logger.Named("Consumer").With(zap.String("queue", queueName)),
		queueName:   queueName,
		concurrency: concurrency,
		processor:   processor,
		stop:        make(chan struct{}),
	}
}

// Start consumes until Stop is called or the channel closes. It blocks.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", c.queueName, err)
	}
	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := ch.Consume(
		q.Name,
		"email-notification-consumer",
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.logger.Info("Consumer started", zap.Int("concurrency", c.concurrency))

	c.wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer c.wg.Done()
			log := c.logger.With(zap.Int("worker_id", workerID))
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						log.Info("Delivery channel closed, worker exiting")
						return
					}
					c.processor.Process(ctx, messageFromDelivery(d))
				}
			}
		}(i)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-c.stop:
		c.logger.Info("Stop requested, waiting for workers")
	case amqpErr := <-closed:
		if amqpErr != nil {
			err = fmt.Errorf("channel closed: %w", amqpErr)
		}
	}
	cancel()
	c.wg.Wait()
	c.logger.Info("All consumer workers stopped")
	return err
}

func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Processor decodes one delivery and hands it to the EmailSender.
type Processor struct {
	sender  EmailSender
	timeout time.Duration
	logger  *zap.Logger
}

func NewProcessor(sender EmailSender, timeout time.Duration, logger *zap.Logger) *Processor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Processor{sender: sender, timeout: timeout, logger: logger.Named("Processor")}
}

// Process acks on success. Malformed bodies and permanent failures are
// nacked without requeue; other send failures are requeued once.
func (p *Processor) Process(ctx context.Context, msg Message) {
	log := p.logger.With(zap.Uint64("delivery_tag", msg.DeliveryTag))
	ack := msg.Ack

	var payload EmailNotificationPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		log.Error("Failed to decode email payload", zap.Error(err), zap.ByteString("body", msg.Body))
		p.nack(log, ack, false)
		return
	}
	if payload.To == "" || (payload.Kind != EmailKindJourneyReady && payload.Kind != EmailKindJourneyFailed) {
		log.Error("Email payload rejected", zap.String("kind", string(payload.Kind)), zap.Bool("hasRecipient", payload.To != ""))
		p.nack(log, ack, false)
		return
	}
	log = log.With(zap.String("kind", string(payload.Kind)), zap.String("journeyID", payload.JourneyID.String()))

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sender.SendEmail(sendCtx, payload); err != nil {
		requeue := !errors.Is(err, ErrPermanent) && !msg.Redelivered
		log.Error("Failed to send email", zap.Error(err), zap.Bool("requeue", requeue))
		p.nack(log, ack, requeue)
		return
	}

	if err := ack.Ack(false); err != nil {
		log.Error("Failed to ack delivery", zap.Error(err))
		return
	}
	log.Info("Email sent")
}

func (p *Processor) nack(log *zap.Logger, ack Acknowledger, requeue bool) {
	if err := ack.Nack(false, requeue); err != nil {
		log.Error("Failed to nack delivery", zap.Error(err))
	}
}
