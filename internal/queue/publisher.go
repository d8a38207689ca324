// Package queue publishes lifecycle events to RabbitMQ for external
// consumers (analytics, escalation tooling). The queue is optional; when no
// AMQP URL is configured the service runs without it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/investinkids/feedback-service/internal/events"
)

// Publisher forwards dispatcher events to a durable AMQP queue.
type Publisher struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares the queue.
func NewPublisher(url, queueName string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", queueName))
	return &Publisher{conn: conn, ch: ch, queueName: queueName, logger: logger}, nil
}

// RegisterHandlers subscribes the publisher to all lifecycle events.
func (p *Publisher) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventReportSubmitted, p.publish)
	dispatcher.Subscribe(events.EventReportClaimed, p.publish)
	dispatcher.Subscribe(events.EventReportCompleted, p.publish)
}

func (p *Publisher) publish(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		p.logger.Warn("event publish failed",
			zap.String("type", string(event.Type)),
			zap.Int64("report_id", event.ReportID),
			zap.Error(err))
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
